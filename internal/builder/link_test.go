package builder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkFlag(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"libfoo.a", "-lfoo"},
		{"foo.so", "-lfoo"},
		{"libm.so", "-lm"},
		{"m", "-lm"},
		{"deps/mathutils/build/libmathutils.a", "-lmathutils"},
	}

	for _, test := range tests {
		t.Run(test.ref, func(t *testing.T) {
			require.Equal(t, test.want, linkFlag(test.ref))
		})
	}
}
