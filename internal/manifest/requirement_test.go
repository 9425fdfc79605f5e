package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Requirement
	}{
		{
			name: "version pin",
			line: "foo==1.0",
			want: Requirement{Name: "foo", Spec: "==1.0"},
		},
		{
			name: "range",
			line: "numpy>=1.21,<2",
			want: Requirement{Name: "numpy", Spec: ">=1.21,<2"},
		},
		{
			name: "extras",
			line: "grudge[octave,vis]==2.3",
			want: Requirement{Name: "grudge", Extras: []string{"octave", "vis"}, Spec: "==2.3"},
		},
		{
			name: "vcs source",
			line: "bar @ git+https://x",
			want: Requirement{Name: "bar", Spec: "@ git+https://x"},
		},
		{
			name: "bare name",
			line: "pytools",
			want: Requirement{Name: "pytools"},
		},
		{
			name: "trailing comment",
			line: "mpi4py>=3  # needed for distributed runs",
			want: Requirement{Name: "mpi4py", Spec: ">=3", Comment: "needed for distributed runs"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRequirement(tt.line, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Extras, got.Extras)
			assert.Equal(t, tt.want.Spec, got.Spec)
			assert.Equal(t, tt.want.Comment, got.Comment)
			assert.Equal(t, tt.line, got.String(), "untouched lines round-trip verbatim")
		})
	}
}

func TestParseRequirement_BlankAndComment(t *testing.T) {
	for _, line := range []string{"", "   ", "# only a comment"} {
		got, err := parseRequirement(line, 1)
		require.NoError(t, err)
		assert.True(t, got.IsBlank())
		assert.Equal(t, line, got.String())
	}
}

func TestParseRequirement_Malformed(t *testing.T) {
	for _, line := range []string{"==1.0", "foo[bar", "foo (>=1.0)"} {
		_, err := parseRequirement(line, 7)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "line %q", line)
		assert.Equal(t, 7, perr.Line)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "foo-bar", NormalizeName("Foo._-Bar"))
	assert.Equal(t, "mpi4py", NormalizeName("MPI4Py"))
	assert.Equal(t, "grudge", NormalizeName("grudge"))
}

func TestRequirement_StringRebuilt(t *testing.T) {
	r := Requirement{Name: "grudge", Extras: []string{"octave"}, Spec: "@ file:///work/lib"}
	assert.Equal(t, "grudge[octave] @ file:///work/lib", r.String())
}
