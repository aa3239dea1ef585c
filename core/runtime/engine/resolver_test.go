package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/runtime/engine"
	"github.com/graphquill/graphquill/core/shared/errors"
)

func TestResolveParametersFromInput(t *testing.T) {
	specs := []domain.ParameterSpec{
		{Name: "user_id", Required: true, Source: domain.SourceInput},
		{Name: "limit", Required: false, Source: domain.SourceInput},
	}
	input := map[string]any{"user_id": "u-1", "limit": 10}

	resolved, err := engine.ResolveParameters("find_user", specs, input, nil, domain.KindSequence)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"user_id": "u-1", "limit": 10}, resolved)
}

func TestResolveParametersDefaultsToInputSource(t *testing.T) {
	specs := []domain.ParameterSpec{{Name: "user_id", Required: true}}
	input := map[string]any{"user_id": "u-1"}

	resolved, err := engine.ResolveParameters("find_user", specs, input, nil, domain.KindSequence)
	require.NoError(t, err)
	assert.Equal(t, "u-1", resolved["user_id"])
}

func TestResolveParametersOptionalOmittedWhenAbsent(t *testing.T) {
	specs := []domain.ParameterSpec{
		{Name: "user_id", Required: true},
		{Name: "limit", Required: false},
	}
	input := map[string]any{"user_id": "u-1"}

	resolved, err := engine.ResolveParameters("find_user", specs, input, nil, domain.KindSequence)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"user_id": "u-1"}, resolved)
	_, present := resolved["limit"]
	assert.False(t, present, "unresolved optional parameter must not appear in the bound map")
}

func TestResolveParametersMissingRequiredInput(t *testing.T) {
	specs := []domain.ParameterSpec{{Name: "user_id", Required: true}}

	_, err := engine.ResolveParameters("find_user", specs, map[string]any{}, nil, domain.KindSequence)
	require.Error(t, err)

	assert.Equal(t, errors.ErrCodeMissingParameter, errors.CodeOf(err))
	assert.Equal(t, "Missing required parameter for find_user: user_id", errors.MessageOf(err))
}

func TestResolveParametersPreviousResultInSequence(t *testing.T) {
	specs := []domain.ParameterSpec{
		{Name: "user_id", Required: true, Source: domain.SourcePreviousResult},
	}
	input := map[string]any{"username": "marcus"}
	prior := domain.Record{"user_id": "u-9", "name": "Marcus"}

	resolved, err := engine.ResolveParameters("count_relationships", specs, input, prior, domain.KindSequence)
	require.NoError(t, err)
	assert.Equal(t, "u-9", resolved["user_id"])
}

func TestResolveParametersPreviousResultExactFieldName(t *testing.T) {
	// The producing record carries "id", the consumer declares "user_id";
	// chaining binds by exact field name only.
	specs := []domain.ParameterSpec{
		{Name: "user_id", Required: true, Source: domain.SourcePreviousResult},
	}
	prior := domain.Record{"id": "u-9"}

	_, err := engine.ResolveParameters("count_relationships", specs, nil, prior, domain.KindSequence)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMissingParameter, errors.CodeOf(err))
}

func TestResolveParametersPreviousResultWithNilPrior(t *testing.T) {
	specs := []domain.ParameterSpec{
		{Name: "user_id", Required: true, Source: domain.SourcePreviousResult},
	}
	input := map[string]any{"user_id": "ignored-in-sequence"}

	_, err := engine.ResolveParameters("count_relationships", specs, input, nil, domain.KindSequence)
	require.Error(t, err)
	assert.Equal(t, "Missing required parameter for count_relationships: user_id", errors.MessageOf(err))
}

func TestResolveParametersPreviousResultInParallelUsesInput(t *testing.T) {
	specs := []domain.ParameterSpec{
		{Name: "user_id", Required: true, Source: domain.SourcePreviousResult},
	}
	input := map[string]any{"user_id": "u-3"}

	resolved, err := engine.ResolveParameters("count_relationships", specs, input, nil, domain.KindParallel)
	require.NoError(t, err)
	assert.Equal(t, "u-3", resolved["user_id"])
}
