package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSinkLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewSinkTo(&buf)

	_ = s.WriteLive("\r1/2")
	_ = s.WriteSnapshot(time.Date(2025, 11, 6, 9, 0, 5, 0, time.UTC), "done")
	_ = s.NewLine()

	assert.Equal(t, "\r1/2\n2025-11-06 09:00:05 done\n\n\n", buf.String())
}
