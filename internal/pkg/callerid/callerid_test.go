package callerid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var callTime = time.Date(2026, time.October, 14, 13, 43, 0, 0, time.UTC)

const rawCall = "\r\nDATE = 1014\r\nTIME = 1343\r\nNMBR = 5551212\r\nNAME = JOHN DOE\r\n\r\n"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"ring", "\r\nRING\r\n", KindRing},
		{"caller id enable echo", "AT+VCID=1\r\r\nOK\r\n", KindEcho},
		{"alternate enable echo", "AT#CID=1\r", KindEcho},
		{"bare ok", "\r\nOK\r\n", KindEcho},
		{"caller id", rawCall, KindCallerID},
		{"line noise", "\r\n\x7f\r\n", KindNoise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestNormalize(t *testing.T) {
	rec, ok := Normalize(rawCall, callTime)
	require.True(t, ok)

	assert.Equal(t, "--DATE = 101426--TIME = 1343--NMBR = 5551212--NAME = JOHN DOE----\n", rec.Line())
	assert.Equal(t, callTime, rec.Received())

	// The year lands at the fixed column the list store reads dates from
	assert.Equal(t, "101426", rec.Line()[9:15])
	assert.Equal(t, "5551212", rec.Line()[37:44])
}

func TestNormalize_MissingSpaces(t *testing.T) {
	raw := "\r\nDATE=1014\r\nTIME =1343\r\nNMBR= 5551212\r\nNAME=ACME CORP\r\n"
	rec, ok := Normalize(raw, callTime)
	require.True(t, ok)
	assert.Equal(t, "--DATE = 101426--TIME = 1343--NMBR = 5551212--NAME = ACME CORP--\n", rec.Line())
}

func TestNormalize_RejectsNonCallerID(t *testing.T) {
	for _, raw := range []string{"\r\nRING\r\n", "AT+VCID=1\r", ""} {
		_, ok := Normalize(raw, callTime)
		assert.False(t, ok, "raw=%q", raw)
	}
}

func TestNormalize_DateAlreadyHasYear(t *testing.T) {
	rec, ok := Normalize("\r\nDATE = 101426\r\nNMBR = 5551212\r\n", callTime)
	require.True(t, ok)
	date, ok := rec.Date(6)
	require.True(t, ok)
	assert.Equal(t, "101426", date)
}

func TestRecordFields(t *testing.T) {
	rec, ok := Normalize(rawCall, callTime)
	require.True(t, ok)

	tests := []struct {
		field string
		want  string
	}{
		{FieldDate, "101426"},
		{FieldTime, "1343"},
		{FieldNmbr, "5551212"},
		{FieldName, "JOHN DOE"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := rec.Field(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok = rec.Field("MESG")
	assert.False(t, ok)

	short, ok := rec.Date(4)
	require.True(t, ok)
	assert.Equal(t, "1014", short)
}

func TestFromLine(t *testing.T) {
	rec := FromLine("--DATE = 101426--NMBR = 8005551234--NAME = Cell Phone   MI--")
	assert.Equal(t, "--DATE = 101426--NMBR = 8005551234--NAME = Cell Phone   MI--\n", rec.Line())
	name, ok := rec.Field(FieldName)
	require.True(t, ok)
	assert.Equal(t, "Cell Phone   MI", name)
	assert.False(t, rec.IsZero())
	assert.True(t, Record{}.IsZero())
}
