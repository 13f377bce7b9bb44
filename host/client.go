package host

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/internal/abi"
	"github.com/blackbox-log/blackbox-log-go/wireformat"
)

// Client drives one guest's export surface. It is not safe for concurrent
// use; the guest's handles and memory are single-threaded.
type Client struct {
	guest Guest
}

// NewClient returns a client over guest.
func NewClient(guest Guest) *Client {
	return &Client{guest: guest}
}

// call invokes an export.
func (c *Client) call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	return c.guest.Call(ctx, name, params...)
}

// callChecked invokes an export whose zero result signals failure.
func (c *Client) callChecked(ctx context.Context, name string, params ...uint64) (uint64, error) {
	result, err := c.call(ctx, name, params...)
	if err != nil {
		return 0, err
	}
	if result == 0 {
		return 0, c.lastError(ctx, name)
	}
	return result, nil
}

// lastError retrieves and frees the guest's last error. A rejected call with
// no record was misuse.
func (c *Client) lastError(ctx context.Context, op string) error {
	if err := c.pendingError(ctx, op); err != nil {
		return err
	}
	return &errors.GuestError{Op: op, Detail: entities.NewErrorDetail(errors.TypeMisuse, "call rejected without an error record")}
}

// pendingError retrieves and frees the guest's last error, or returns nil
// when none is recorded.
func (c *Client) pendingError(ctx context.Context, op string) error {
	packed, err := c.call(ctx, "error_last")
	if err != nil {
		return err
	}
	if packed == 0 {
		return nil
	}
	ptr, n := abi.Unpack(packed)
	raw, err := c.guest.Read(ctx, ptr, n)
	if err != nil {
		return err
	}
	if err := c.free(ctx, "slice8_free", ptr, n); err != nil {
		return err
	}
	var detail entities.ErrorDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return fmt.Errorf("decode last error of %s: %w", op, err)
	}
	return errors.FromErrorDetail(op, &detail)
}

func (c *Client) free(ctx context.Context, export string, ptr, n uint32) error {
	_, err := c.call(ctx, export, uint64(ptr), uint64(n))
	return err
}

func (c *Client) closeHandle(ctx context.Context, export string, h uint32) error {
	_, err := c.call(ctx, export, uint64(h))
	return err
}

// upload copies data into a fresh guest buffer.
func (c *Client) upload(ctx context.Context, data []byte) (ptr, n uint32, err error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	result, err := c.callChecked(ctx, "allocate", uint64(len(data)))
	if err != nil {
		return 0, 0, err
	}
	ptr = uint32(result)
	if err := c.guest.Write(ctx, ptr, data); err != nil {
		_ = c.free(ctx, "deallocate", ptr, uint32(len(data)))
		return 0, 0, err
	}
	return ptr, uint32(len(data)), nil
}

// readStr resolves a view into guest memory.
func (c *Client) readStr(ctx context.Context, s abi.Str) (string, error) {
	if s.Len == 0 {
		return "", nil
	}
	b, err := c.guest.Read(ctx, s.Ptr, s.Len)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("string at 0x%08x is not valid UTF-8", s.Ptr)
	}
	return string(b), nil
}

// take reads a transfer-out array of count size-byte elements and frees it.
func (c *Client) take(ctx context.Context, packed uint64, size int, free string) ([]byte, int, error) {
	ptr, count := abi.Unpack(packed)
	b, err := c.guest.Read(ctx, ptr, count*uint32(size))
	if err != nil {
		return nil, 0, err
	}
	return b, int(count), c.free(ctx, free, ptr, count)
}

// takeRecord reads a transfer-out record and frees it.
func (c *Client) takeRecord(ctx context.Context, packed uint64) ([]byte, error) {
	ptr, n := abi.Unpack(packed)
	b, err := c.guest.Read(ctx, ptr, n)
	if err != nil {
		return nil, err
	}
	return b, c.free(ctx, "slice8_free", ptr, n)
}

func (c *Client) readStrs(ctx context.Context, packed uint64) ([]string, error) {
	b, count, err := c.take(ctx, packed, wireformat.StrSize, "sliceStr_free")
	if err != nil {
		return nil, err
	}
	// The views are owned by the headers handle and outlive the array.
	views, err := wireformat.ReadStrs(b, count)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(views))
	for i, v := range views {
		if out[i], err = c.readStr(ctx, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Client) readFrameDef(ctx context.Context, packed uint64) (entities.FrameDef, error) {
	b, count, err := c.take(ctx, packed, wireformat.FieldDefSize, "frameDef_free")
	if err != nil {
		return nil, err
	}
	recs, err := wireformat.ReadFieldDefs(b, count)
	if err != nil {
		return nil, err
	}
	def := make(entities.FrameDef, len(recs))
	for i, r := range recs {
		name, err := c.readStr(ctx, r.Name)
		if err != nil {
			return nil, err
		}
		def[i] = entities.FieldDef{Name: name, Signed: r.Signed, Unit: r.Unit}
	}
	return def, nil
}

// MemoryStats returns the guest's pinned allocation count and bytes.
func (c *Client) MemoryStats(ctx context.Context) (allocations, bytes int, err error) {
	packed, err := c.call(ctx, "memory_stats")
	if err != nil {
		return 0, 0, err
	}
	a, b := abi.Unpack(packed)
	return int(a), int(b), nil
}

// OpenFile uploads a file of one or more logs. The guest owns the bytes.
func (c *Client) OpenFile(ctx context.Context, data []byte) (*LogFile, error) {
	ptr, n, err := c.upload(ctx, data)
	if err != nil {
		return nil, err
	}
	h, err := c.callChecked(ctx, "file_new", uint64(ptr), uint64(n))
	if err != nil {
		return nil, err
	}
	return &LogFile{c: c, handle: uint32(h)}, nil
}

// ParseHeaders uploads a single log and parses its headers.
func (c *Client) ParseHeaders(ctx context.Context, data []byte) (*LogHeaders, error) {
	ptr, n, err := c.upload(ctx, data)
	if err != nil {
		return nil, err
	}
	h, err := c.callChecked(ctx, "headers_new", uint64(ptr), uint64(n))
	if err != nil {
		return nil, err
	}
	return &LogHeaders{c: c, handle: uint32(h)}, nil
}

// LogFile is a guest file handle.
type LogFile struct {
	c      *Client
	handle uint32
}

// LogCount returns the number of logs in the file.
func (f *LogFile) LogCount(ctx context.Context) (int, error) {
	n, err := f.c.call(ctx, "file_logCount", uint64(f.handle))
	return int(n), err
}

// Headers parses the headers of log index.
func (f *LogFile) Headers(ctx context.Context, index int) (*LogHeaders, error) {
	h, err := f.c.callChecked(ctx, "file_getHeaders", uint64(f.handle), uint64(index))
	if err != nil {
		return nil, err
	}
	return &LogHeaders{c: f.c, handle: uint32(h)}, nil
}

// Close frees the file handle. Headers opened from it stay valid.
func (f *LogFile) Close(ctx context.Context) error {
	return f.c.closeHandle(ctx, "file_free", f.handle)
}
