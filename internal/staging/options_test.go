package staging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOptionsDefaults(t *testing.T) {
	o := ParseOptions(map[string]string{"pages": " 1-2,5 "})
	assert.Equal(t, "eng", o.Language)
	assert.Equal(t, "A4", o.PageSize)
	assert.Equal(t, "portrait", o.Orientation)
	assert.Equal(t, "1-2,5", o.Pages)
	assert.Empty(t, o.SplitMode)
	assert.Equal(t, SplitRange, o.EffectiveSplitMode())
}

func TestParseOptionsCanonicalPageSize(t *testing.T) {
	for in, want := range map[string]string{"letter": "Letter", "a3": "A3", "LEGAL": "Legal", "B5": "B5"} {
		assert.Equal(t, want, ParseOptions(map[string]string{"page_size": in}).PageSize, in)
	}
}

func TestOptionsValidateNamedFields(t *testing.T) {
	o := ParseOptions(map[string]string{"page_size": "B5", "orientation": "diagonal"})
	assert.NoError(t, o.Validate("language"))
	assert.NoError(t, o.Validate("unknown"))
	assert.Equal(t, "Invalid orientation. Supported values: portrait, landscape", messageOf(o.Validate("orientation")))
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		fields map[string]string
		want   string
	}{
		{map[string]string{"language": "eng+deu"}, ""},
		{map[string]string{"language": "chi_sim"}, ""},
		{map[string]string{"language": "en g"}, "Invalid language code"},
		{map[string]string{"split_mode": "Individual"}, ""},
		{map[string]string{"split_mode": "odd"}, "Invalid split_mode. Supported values: range, individual, all"},
		{map[string]string{"page_size": "Letter", "orientation": "LANDSCAPE"}, ""},
		{map[string]string{"page_size": "legal"}, ""},
		{map[string]string{"page_size": "B5"}, "Invalid page_size. Supported values: A3, A4, A5, Letter, Legal"},
		{map[string]string{"orientation": "diagonal"}, "Invalid orientation. Supported values: portrait, landscape"},
	}
	for _, tt := range tests {
		err := ParseOptions(tt.fields).Validate()
		if tt.want == "" {
			assert.NoError(t, err, "%v", tt.fields)
			continue
		}
		assert.Equal(t, tt.want, messageOf(err), "%v", tt.fields)
	}
}
