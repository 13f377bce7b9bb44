//go:build wasip1

package wasm

import (
	"github.com/blackbox-log/blackbox-log-go/application/headers"
	"github.com/blackbox-log/blackbox-log-go/domain/entities"
)

//go:wasmexport allocate
func exportAllocate(size uint32) uint32 { return Installed().Allocate(size) }

//go:wasmexport deallocate
func exportDeallocate(ptr uint32, size uint32) { Installed().Deallocate(ptr, size) }

//go:wasmexport slice8_free
func exportSlice8Free(ptr uint32, n uint32) { Installed().Slice8Free(ptr, n) }

//go:wasmexport sliceStr_free
func exportSliceStrFree(ptr uint32, n uint32) { Installed().SliceStrFree(ptr, n) }

//go:wasmexport unknownHeaders_free
func exportUnknownHeadersFree(ptr uint32, n uint32) { Installed().UnknownHeadersFree(ptr, n) }

//go:wasmexport frameDef_free
func exportFrameDefFree(ptr uint32, n uint32) { Installed().FrameDefFree(ptr, n) }

//go:wasmexport error_last
func exportErrorLast() uint64 { return Installed().ErrorLast() }

//go:wasmexport memory_stats
func exportMemoryStats() uint64 { return Installed().MemoryStats() }

//go:wasmexport file_new
func exportFileNew(ptr uint32, n uint32) uint32 { return Installed().FileNew(ptr, n) }

//go:wasmexport file_free
func exportFileFree(file uint32) { Installed().FileFree(file) }

//go:wasmexport file_logCount
func exportFileLogCount(file uint32) uint32 { return Installed().FileLogCount(file) }

//go:wasmexport file_getHeaders
func exportFileGetHeaders(file uint32, log uint32) uint32 { return Installed().FileGetHeaders(file, log) }

//go:wasmexport headers_new
func exportHeadersNew(ptr uint32, n uint32) uint32 { return Installed().HeadersNew(ptr, n) }

//go:wasmexport headers_free
func exportHeadersFree(h uint32) { Installed().HeadersFree(h) }

//go:wasmexport headers_mainDef
func exportHeadersMainDef(h uint32) uint64 { return Installed().HeadersFrameDef(entities.FrameKindMain, h) }

//go:wasmexport headers_slowDef
func exportHeadersSlowDef(h uint32) uint64 { return Installed().HeadersFrameDef(entities.FrameKindSlow, h) }

//go:wasmexport headers_gpsDef
func exportHeadersGpsDef(h uint32) uint64 { return Installed().HeadersFrameDef(entities.FrameKindGps, h) }

//go:wasmexport headers_firmwareRevision
func exportHeadersFirmwareRevision(h uint32) uint64 { return Installed().HeadersScalar(headers.FirmwareRevision, h) }

//go:wasmexport headers_debugMode
func exportHeadersDebugMode(h uint32) uint64 { return Installed().HeadersScalar(headers.DebugMode, h) }

//go:wasmexport headers_pwmProtocol
func exportHeadersPwmProtocol(h uint32) uint64 { return Installed().HeadersScalar(headers.PwmProtocol, h) }

//go:wasmexport headers_boardInfo
func exportHeadersBoardInfo(h uint32) uint64 { return Installed().HeadersScalar(headers.BoardInfo, h) }

//go:wasmexport headers_craftName
func exportHeadersCraftName(h uint32) uint64 { return Installed().HeadersScalar(headers.CraftName, h) }

//go:wasmexport headers_firmwareKind
func exportHeadersFirmwareKind(h uint32) uint32 { return Installed().HeadersFirmwareKind(h) }

//go:wasmexport headers_firmwareDate
func exportHeadersFirmwareDate(h uint32) uint64 { return Installed().HeadersFirmwareDate(h) }

//go:wasmexport headers_firmwareVersion
func exportHeadersFirmwareVersion(h uint32) uint64 { return Installed().HeadersFirmwareVersion(h) }

//go:wasmexport headers_disabledFields
func exportHeadersDisabledFields(h uint32) uint64 { return Installed().HeadersDisabledFields(h) }

//go:wasmexport headers_features
func exportHeadersFeatures(h uint32) uint64 { return Installed().HeadersFeatures(h) }

//go:wasmexport headers_unknown
func exportHeadersUnknown(h uint32) uint64 { return Installed().HeadersUnknown(h) }

//go:wasmexport data_new
func exportDataNew(h uint32, builder uint32) uint64 { return Installed().DataNew(h, builder) }

//go:wasmexport data_free
func exportDataFree(parser uint32) { Installed().DataFree(parser) }

//go:wasmexport data_mainDef
func exportDataMainDef(parser uint32) uint64 { return Installed().DataFrameDef(entities.FrameKindMain, parser) }

//go:wasmexport data_slowDef
func exportDataSlowDef(parser uint32) uint64 { return Installed().DataFrameDef(entities.FrameKindSlow, parser) }

//go:wasmexport data_gpsDef
func exportDataGpsDef(parser uint32) uint64 { return Installed().DataFrameDef(entities.FrameKindGps, parser) }

//go:wasmexport data_stats
func exportDataStats(parser uint32) uint64 { return Installed().DataStats(parser) }

//go:wasmexport data_next
func exportDataNext(parser uint32) { Installed().DataNext(parser) }

//go:wasmexport data_event
func exportDataEvent(parser uint32) uint32 { return Installed().DataEvent(parser) }

//go:wasmexport filter_new
func exportFilterNew(arena uint32, main int32, slow int32, gps int32) uint64 { return Installed().FilterNew(arena, main, slow, gps) }

//go:wasmexport filter_main
func exportFilterMain(builder uint32, ptr uint32, n uint32) { Installed().FilterPush(entities.FrameKindMain, builder, ptr, n) }

//go:wasmexport filter_slow
func exportFilterSlow(builder uint32, ptr uint32, n uint32) { Installed().FilterPush(entities.FrameKindSlow, builder, ptr, n) }

//go:wasmexport filter_gps
func exportFilterGps(builder uint32, ptr uint32, n uint32) { Installed().FilterPush(entities.FrameKindGps, builder, ptr, n) }

//go:wasmexport filter_free
func exportFilterFree(builder uint32) { Installed().FilterFree(builder) }
