// Package ports defines the engine interface the marshalling layer is built
// on. Adapters such as infrastructure/textlog implement it.
package ports
