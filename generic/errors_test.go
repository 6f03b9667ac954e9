package generic_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/attendance-engine/generic"
)

func TestKindOf_ClassifiesEveryKind(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{generic.NotFound("attendance record not found"), generic.ErrNotFound},
		{generic.BadRequest("reason is required"), generic.ErrBadRequest},
		{generic.Forbidden("admin role required"), generic.ErrForbidden},
		{generic.Conflict("request is not pending"), generic.ErrConflict},
		{generic.Internal(sql.ErrConnDone, "load attendance"), generic.ErrInternal},
		{errors.New("unclassified"), generic.ErrInternal},
		{fmt.Errorf("wrapped: %w", generic.Conflict("x")), generic.ErrConflict},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, generic.KindOf(tc.err), tc.err.Error())
	}
}

func TestInternal_KeepsCauseAndPassesClassifiedErrors(t *testing.T) {
	err := generic.Internal(sql.ErrConnDone, "load attendance")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.ErrorIs(t, err, generic.ErrInternal)
	assert.Equal(t, "load attendance", generic.MessageOf(err))

	notFound := generic.NotFound("missing")
	assert.Same(t, notFound, generic.Internal(notFound, "ignored"))
}

func TestMessageOf_HidesUnclassifiedErrors(t *testing.T) {
	assert.Equal(t, "internal error", generic.MessageOf(errors.New("disk on fire")))
	assert.Equal(t, "reason is required", generic.MessageOf(generic.BadRequest("reason is required")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, generic.IsClientError(generic.Forbidden("no")))
	assert.False(t, generic.IsClientError(generic.Internal(errors.New("x"), "y")))
}
