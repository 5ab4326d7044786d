package statement

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReader(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		rd, err := NewReader(strings.NewReader("\xEF\xBB\xBFfecha,monto\n2026-05-04,1000"))
		require.NoError(t, err)
		require.NoError(t, rd.ReadHeader())
		assert.Equal(t, []string{"fecha", "monto"}, rd.Headers())
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(" \n\n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Latin-1 is rejected", func(t *testing.T) {
		_, err := NewReader(strings.NewReader("fecha,descripci\xf3n\n"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Rune split by the peek window", func(t *testing.T) {
		body := "glosa\n" + strings.Repeat("a", sniffSize-7) + "ñ\n"
		_, err := NewReader(strings.NewReader(body))
		assert.NoError(t, err)
	})

	t.Run("Delimiter detection", func(t *testing.T) {
		tests := []struct {
			header string
			want   rune
		}{
			{"fecha,monto,glosa", ','},
			{"fecha;monto;glosa", ';'},
			{"fecha\tmonto\tglosa", '\t'},
			{"fecha|monto|glosa", '|'},
			{"fecha", ','},
		}
		for _, tt := range tests {
			rd, err := NewReader(strings.NewReader(tt.header + "\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rd.Delimiter(), tt.header)
		}
	})

	t.Run("Fixed delimiter", func(t *testing.T) {
		rd, err := NewReader(strings.NewReader("a;b,c\n"), WithDelimiter(','))
		require.NoError(t, err)
		require.NoError(t, rd.ReadHeader())
		assert.Equal(t, []string{"a_b", "c"}, rd.Headers())
	})
}

func TestReadHeader(t *testing.T) {
	t.Run("Normalized names", func(t *testing.T) {
		rd, err := NewReader(strings.NewReader("  Fecha Operación ; DESCRIPCIÓN;Nro. Documento ;Abono ($)\n"))
		require.NoError(t, err)
		require.NoError(t, rd.ReadHeader())
		assert.Equal(t, []string{"fecha_operacion", "descripcion", "nro_documento", "abono"}, rd.Headers())

		idx, ok := rd.Column("date", "fecha_operacion")
		assert.True(t, ok)
		assert.Equal(t, 0, idx)

		_, ok = rd.Column("monto")
		assert.False(t, ok)
	})

	t.Run("Duplicate names keep the first column", func(t *testing.T) {
		rd, err := NewReader(strings.NewReader("glosa,glosa\n"))
		require.NoError(t, err)
		require.NoError(t, rd.ReadHeader())
		idx, _ := rd.Column("glosa")
		assert.Equal(t, 0, idx)
	})

	t.Run("Blank header", func(t *testing.T) {
		rd, err := NewReader(strings.NewReader(",,\n1,2,3"))
		require.NoError(t, err)
		assert.ErrorIs(t, rd.ReadHeader(), ErrMissingHeader)
	})
}

func TestReadRow(t *testing.T) {
	rd, err := NewReader(strings.NewReader("fecha,monto\n2026-05-04,1000\n,\n2026-05-05\n"))
	require.NoError(t, err)
	require.NoError(t, rd.ReadHeader())

	row, err := rd.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "1000", row.Field(1))
	assert.False(t, row.IsEmpty())

	row, err = rd.ReadRow()
	require.NoError(t, err)
	assert.True(t, row.IsEmpty())

	row, err = rd.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 4, row.LineNumber)
	assert.Empty(t, row.Field(1))
	assert.Empty(t, row.Field(-1))

	_, err = rd.ReadRow()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 3, rd.TotalRows())
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Descripción":      "descripcion",
		"  MONTO  ":        "monto",
		"Fecha-Movimiento": "fecha_movimiento",
		"N° Doc.":          "n_doc",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}
