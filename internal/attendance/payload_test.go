package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload("2024-05-01,3,A,Databases,lecture\n")
	require.NoError(t, err)
	assert.Equal(t, Payload{Date: "2024-05-01", Semester: "3", Slot: "A", Subject: "Databases", AttendanceType: "lecture"}, p)
	assert.Equal(t, "2024-05-01,3,A,Databases,lecture", p.String())
}

func TestParsePayloadFieldCount(t *testing.T) {
	for _, raw := range []string{
		"",
		"2024-05-01",
		"2024-05-01,3,A,Databases",
		"2024-05-01,3,A,Data,bases,lecture",
	} {
		_, err := ParsePayload(raw)
		assert.ErrorIs(t, err, ErrInvalidPayload, raw)
	}
}

func TestPayloadValidate(t *testing.T) {
	assert.ErrorIs(t, Payload{Date: "d", Semester: "s", Slot: "x", Subject: "", AttendanceType: "t"}.validate(), ErrMissingFields)
	assert.ErrorIs(t, Payload{Date: "d", Semester: "s", Slot: "x", Subject: "Data, Bases", AttendanceType: "t"}.validate(), ErrCommaInField)
	assert.NoError(t, Payload{Date: "d", Semester: "s", Slot: "x", Subject: "y", AttendanceType: "t"}.validate())
}

func TestRenderQR(t *testing.T) {
	png, err := RenderQR(Payload{Date: "2024-05-01", Semester: "3", Slot: "A", Subject: "Databases", AttendanceType: "lecture"})
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), png[:8])
}
