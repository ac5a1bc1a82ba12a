package modeling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunBatch_ContinuesPastFailures(t *testing.T) {
	br := RunBatch([]string{"a", "", "c"}, func(i int, s string) Result {
		if s == "" {
			return Fail("empty item", errors.New("boom"))
		}
		return OK("ok", s)
	})

	assert.Equal(t, 3, br.Total)
	assert.Equal(t, 2, br.Succeeded)
	assert.Equal(t, 1, br.Failed)
	assert.Equal(t, "boom", br.Results[1].Error)
	assert.Equal(t, "c", br.Results[2].Data)

	env := br.Envelope("validate_resources")
	assert.True(t, env.Success)
	assert.Contains(t, env.Message, "2/3")
}

func TestFailf(t *testing.T) {
	r := Failf("unknown type %s", "X")
	assert.False(t, r.Success)
	assert.Equal(t, "unknown type X", r.Message)
	assert.Empty(t, r.Error)
}

func TestFail_KeepsError(t *testing.T) {
	_, err := testRegistry(t).Get("Nope")
	r := Fail("describe failed", err)
	assert.ErrorIs(t, r.Err(), ErrUnknownType)
	assert.Nil(t, OK("fine", nil).Err())
}
