package logfile

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
	"github.com/blackbox-log/blackbox-log-go/domain/errors"
	"github.com/blackbox-log/blackbox-log-go/infrastructure/textlog"
	"github.com/blackbox-log/blackbox-log-go/internal/testutil"
)

func TestFile_MultipleLogs(t *testing.T) {
	testutil.ResetMemory(t)

	data := testutil.Concat(
		testutil.NewLog().Bytes(),
		testutil.NewLog().WithGps().Header("Craft name", "wing").Bytes(),
	)
	f := New(textlog.New(), testutil.AdoptBytes(t, data))
	require.Equal(t, 2, f.LogCount())

	first, err := f.Headers(0)
	require.NoError(t, err)
	second, err := f.Headers(1)
	require.NoError(t, err)

	name, _ := second.CraftName()
	assert.Equal(t, "wing", name)
	assert.Empty(t, first.GpsFrameDef())
	assert.NotEmpty(t, second.GpsFrameDef())

	// The file can go before the logs opened from it.
	f.Close()
	f.Close()

	p, err := second.DataParser(nil)
	require.NoError(t, err)
	second.Close()

	var gps int
	for range 10 {
		require.NoError(t, p.Advance())
		if p.Event().Kind() == entities.EventKindGps {
			gps++
		}
	}
	assert.Equal(t, 1, gps)
	assert.Equal(t, uint32(1), p.Stats().Counts.GpsHome)

	p.Close()
	first.Close()
	testutil.AssertNoLeaks(t)
}

func TestFile_Errors(t *testing.T) {
	testutil.ResetMemory(t)

	good := testutil.NewLog().Bytes()
	bad := testutil.NewLog().Header("Data version", "3").Bytes()
	f := New(textlog.New(), testutil.AdoptBytes(t, testutil.Concat(good, bad)))
	defer f.Close()

	_, err := f.Headers(1)
	var perr *errors.HeaderParseError
	require.True(t, stdErrors.As(err, &perr))
	assert.Equal(t, 1, perr.Log)
	assert.Contains(t, err.Error(), "log 1")

	var misuse *errors.MisuseError
	_, err = f.Headers(2)
	assert.True(t, stdErrors.As(err, &misuse))
	_, err = f.Headers(-1)
	assert.True(t, stdErrors.As(err, &misuse))
}

func TestFile_NotALog(t *testing.T) {
	testutil.ResetMemory(t)

	f := New(textlog.New(), testutil.AdoptBytes(t, []byte("garbage")))
	assert.Equal(t, 1, f.LogCount(), "the single log is reported so parsing can fail")
	_, err := f.Headers(0)
	var perr *errors.HeaderParseError
	assert.True(t, stdErrors.As(err, &perr))

	f.Close()
	testutil.AssertNoLeaks(t)
}
