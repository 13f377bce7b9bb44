package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
)

func TestHeaderParseError(t *testing.T) {
	base := fmt.Errorf("missing data version")
	err := &HeaderParseError{Err: base, Log: 2}

	assert.Equal(t, "failed to parse headers of log 2: missing data version", err.Error())
	assert.True(t, errors.Is(err, base))

	single := &HeaderParseError{Err: base, Log: -1}
	assert.Equal(t, "failed to parse headers: missing data version", single.Error())
}

func TestAllocError(t *testing.T) {
	err := &AllocError{Requested: 4096, InUse: 1000, Limit: 2048}
	assert.Equal(t, "allocation of 4096 bytes failed (in use: 1000 bytes, limit: 2048 bytes)", err.Error())

	d := err.ToErrorDetail()
	assert.Equal(t, TypeAlloc, d.Type)
	assert.Equal(t, 4096, d.Details["requested"])
}

func TestHandleError(t *testing.T) {
	err := &HandleError{Kind: "headers", Handle: 0x02000007}
	assert.Equal(t, "invalid headers handle 0x02000007", err.Error())
	assert.Equal(t, "headers", err.ToErrorDetail().Code)
}

func TestMisuseError(t *testing.T) {
	err := &MisuseError{Op: "filter push", Reason: "main filter is full (capacity 2)"}
	assert.Equal(t, "filter push: main filter is full (capacity 2)", err.Error())

	d := err.ToErrorDetail()
	assert.Equal(t, TypeMisuse, d.Type)
	assert.Equal(t, "filter push", d.Code)
}

func TestToErrorDetail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{name: "header parse", err: &HeaderParseError{Err: errors.New("x"), Log: -1}, wantType: TypeHeaderParse},
		{name: "alloc", err: &AllocError{Requested: 1}, wantType: TypeAlloc},
		{name: "wrapped handle", err: fmt.Errorf("data_next: %w", &HandleError{Kind: "parser"}), wantType: TypeHandle},
		{name: "plain", err: errors.New("boom"), wantType: TypeInternal},
		{name: "detail", err: entities.NewErrorDetail(TypePanic, "kaboom"), wantType: TypePanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ToErrorDetail(tt.err)
			require.NotNil(t, d)
			assert.Equal(t, tt.wantType, d.Type)
		})
	}

	assert.Nil(t, ToErrorDetail(nil))
}

func TestFromErrorDetail_RoundTrip(t *testing.T) {
	original := &HeaderParseError{Err: errors.New("unsupported data version 1"), Log: 1}
	payload, err := json.Marshal(original.ToErrorDetail())
	require.NoError(t, err)

	var d entities.ErrorDetail
	require.NoError(t, json.Unmarshal(payload, &d))

	got := FromErrorDetail("file_getHeaders", &d)
	var hpe *HeaderParseError
	require.True(t, errors.As(got, &hpe))
	assert.Equal(t, 1, hpe.Log)
	assert.Equal(t, original.Error(), got.Error())

	assert.Nil(t, FromErrorDetail("x", nil))
}

func TestGuestError(t *testing.T) {
	detail := entities.NewErrorDetail(TypeAlloc, "allocation of 10 bytes failed").WithCode("allocate")
	err := FromErrorDetail("allocate", detail)

	assert.Equal(t, "allocate failed: alloc: allocation of 10 bytes failed [allocate]", err.Error())

	var ge *GuestError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "allocate", ge.Op)

	var d *entities.ErrorDetail
	require.True(t, errors.As(err, &d))
	assert.Same(t, detail, d)

	assert.Equal(t, "data_new failed", (&GuestError{Op: "data_new"}).Error())
	assert.NoError(t, (&GuestError{Op: "data_new"}).Unwrap())
}
