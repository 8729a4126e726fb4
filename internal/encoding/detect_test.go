package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/docmatch/internal/encoding"
)

const header = "Dokumenttyp;Leverantör;Benämning;À-pris\nFaktura;Åkerö AB;Skruv;12,50\n"

func TestNewUTF8Reader(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(header))
	require.NoError(t, err)

	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte(header))
	require.NoError(t, err)

	type testCase struct {
		name        string
		input       []byte
		wantCharset encoding.Charset
	}

	tests := []testCase{
		{
			name:        "utf-8 passthrough",
			input:       []byte(header),
			wantCharset: encoding.CharsetUTF8,
		},
		{
			name:        "utf-8 bom stripped",
			input:       append([]byte{0xEF, 0xBB, 0xBF}, header...),
			wantCharset: encoding.CharsetUTF8,
		},
		{
			name:        "utf-16 little endian",
			input:       utf16,
			wantCharset: encoding.CharsetUTF16LE,
		},
		{
			name:  "windows-1252",
			input: latin1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, cs, err := encoding.NewUTF8Reader(bytes.NewReader(tt.input))
			require.NoError(t, err)

			if tt.wantCharset != "" {
				assert.Equal(t, tt.wantCharset, cs)
			}

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, header, string(got))
		})
	}
}

func TestNewUTF8Reader_Empty(t *testing.T) {
	r, cs, err := encoding.NewUTF8Reader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, encoding.CharsetUTF8, cs)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_InvalidUTF8FallsBack(t *testing.T) {
	cs := encoding.Detect([]byte{'A', 0xE5, 'B', 0xF6})
	assert.NotEqual(t, encoding.CharsetUTF8, cs)
}
