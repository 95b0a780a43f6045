package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOnlyJSONRoundTrip(t *testing.T) {
	d, err := ParseDateOnly("2026-03-02")
	require.NoError(t, err)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-02"`, string(raw))

	var decoded DateOnly
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "2026-03-02", decoded.String())
}

func TestDateOnlyUnmarshalRejectsOtherFormats(t *testing.T) {
	var d DateOnly
	assert.Error(t, json.Unmarshal([]byte(`"03/02/2026"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"2026-3-2"`), &d))
}

func TestDateOnlyScanDropsTimeComponent(t *testing.T) {
	var d DateOnly
	require.NoError(t, d.Scan(time.Date(2026, 3, 2, 13, 45, 0, 0, time.FixedZone("X", 3600))))
	assert.Equal(t, "2026-03-02", d.String())
}

func TestDateOnlyScanString(t *testing.T) {
	var d DateOnly
	require.NoError(t, d.Scan("2026-03-02"))
	assert.Equal(t, "2026-03-02", d.String())

	require.NoError(t, d.Scan([]byte("2026-04-01")))
	assert.Equal(t, "2026-04-01", d.String())
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, AttendanceStatusPresent.Valid())
	assert.True(t, AttendanceStatusAbsent.Valid())
	assert.False(t, AttendanceStatus("Late").Valid())
	assert.False(t, AttendanceStatus("").Valid())
}
