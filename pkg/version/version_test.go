package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/stackline/pkg/version"
)

func TestString(t *testing.T) {
	version.InitBinaryVersion()

	out := version.String()

	assert.Contains(t, out, version.Version)
	assert.Contains(t, out, "commit: ")
	assert.Contains(t, out, "built: ")
}
