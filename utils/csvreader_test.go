package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEachCSVRow(t *testing.T) {
	csvData := "a,b,c\n1,2\nx,\"y\"z\",w\n4,5,6\n"

	var lines []int
	var widths []int
	err := EachCSVRow(strings.NewReader(csvData), func(line int, row []string) error {
		lines = append(lines, line)
		widths = append(widths, len(row))
		return nil
	}, nil)
	require.NoError(t, err)

	// LazyQuotes keeps the third row readable
	assert.Equal(t, []int{1, 2, 3, 4}, lines)
	assert.Equal(t, []int{3, 2, 3, 3}, widths)
}

func TestEachCSVRowStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	count := 0
	err := EachCSVRow(strings.NewReader("a\nb\nc\n"), func(line int, row []string) error {
		count++
		if line == 2 {
			return stop
		}
		return nil
	}, nil)
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, count)
}
