package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTTLType_Valid(t *testing.T) {
	for _, v := range []TTLType{TTLTypeDays, TTLTypeWeeks, TTLTypeMonths, TTLTypeIndefinite} {
		assert.True(t, v.Valid(), v)
	}
	assert.False(t, TTLType("years").Valid())
	assert.False(t, TTLType("").Valid())
}

func TestContentType_Valid(t *testing.T) {
	for _, v := range []ContentType{ContentTypeMusic, ContentTypeTalk, ContentTypeMixed, ContentTypeUnknown} {
		assert.True(t, v.Valid(), v)
	}
	assert.False(t, ContentType("news").Valid())
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, NullableString(""))
	assert.Equal(t, "jazz", StringValue(NullableString("jazz")))
	assert.Equal(t, "", StringValue(nil))
}

func TestShow_RetainsForever(t *testing.T) {
	s := &Show{DefaultTTLType: TTLTypeIndefinite}
	assert.True(t, s.RetainsForever())
	s.DefaultTTLType = TTLTypeWeeks
	assert.False(t, s.RetainsForever())
}
