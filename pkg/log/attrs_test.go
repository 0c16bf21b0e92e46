package log_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

func TestTypedAttrs(t *testing.T) {
	attr := log.InstanceID(api.InstanceID("inst-1"))
	assert.Equal(t, "instance_id", attr.Key)
	assert.Equal(t, "inst-1", attr.Value.String())

	attr = log.Status(api.WorkflowRunning)
	assert.Equal(t, "status", attr.Key)
	assert.Equal(t, "RUNNING", attr.Value.String())
}

func TestErrorAttr(t *testing.T) {
	attr := log.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	attr = log.Error(nil)
	assert.Equal(t, "", attr.Value.String())
}
