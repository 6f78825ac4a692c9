package upload

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-backend/internal/imagequality"
)

type stubChecker struct {
	result imagequality.Result
	calls  int
}

func (s *stubChecker) Check([]byte) imagequality.Result {
	s.calls++
	return s.result
}

func TestValidateMissingFile(t *testing.T) {
	v := NewValidator(0)

	err := v.Validate(nil)
	require.ErrorIs(t, err, ErrMissingFile)
	assert.Equal(t, "No file provided", err.Error())

	err = v.Validate(&File{Data: []byte("x")})
	require.ErrorIs(t, err, ErrMissingFile)
	assert.Equal(t, "No file selected", err.Error())
}

func TestValidateOversizeAlwaysRejected(t *testing.T) {
	quality := &stubChecker{}
	v := &Validator{MaxFileSize: 8, Quality: quality}

	for _, name := range []string{"a.pdf", "a.png", "a.jpg", "noext"} {
		err := v.Validate(&File{Filename: name, Data: bytes.Repeat([]byte{0xFF}, 9)})
		var tooLarge *FileTooLargeError
		require.True(t, errors.As(err, &tooLarge), name)
		assert.Equal(t, int64(9), tooLarge.Size)
		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.Equal(t, "File too large (9 bytes)", err.Error())
	}
	assert.Zero(t, quality.calls)
}

func TestValidateSizeBoundary(t *testing.T) {
	v := &Validator{MaxFileSize: 8}
	assert.NoError(t, v.Validate(&File{Filename: "a.pdf", Data: make([]byte, 8)}))
}

func TestValidatePDFSkipsQuality(t *testing.T) {
	quality := &stubChecker{result: imagequality.Result{Bad: true, Reason: "nope"}}
	v := &Validator{MaxFileSize: 1024, Quality: quality}

	require.NoError(t, v.Validate(&File{Filename: "Invoice.PDF", Data: []byte("%PDF-1.4\n")}))
	assert.Zero(t, quality.calls)
}

func TestValidateQualityFailure(t *testing.T) {
	quality := &stubChecker{result: imagequality.Result{Bad: true, Reason: imagequality.ReasonBlurry, Score: 12.345}}
	v := &Validator{MaxFileSize: 1024, Quality: quality}

	err := v.Validate(&File{Filename: "scan.jpg", Data: []byte("jpeg")})
	var qe *QualityError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, imagequality.ReasonBlurry, qe.Reason)
	assert.InDelta(t, 12.345, qe.Score, 1e-9)
	assert.ErrorIs(t, err, ErrQualityFailed)
	assert.Equal(t, "Quality Check Failed: Image is too blurry", err.Error())
	assert.Equal(t, 1, quality.calls)
}

func TestValidateRealCheckerRejectsGarbageImage(t *testing.T) {
	v := NewValidator(1024)
	err := v.Validate(&File{Filename: "photo.png", Data: []byte("not a png")})
	assert.ErrorIs(t, err, ErrQualityFailed)
}
