package migrate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/journal/pkg/types"
)

func schemaAt(major, minor int32) *types.ExperimentSchema {
	return &types.ExperimentSchema{
		Version: types.Version{Major: major, Minor: minor},
		Title:   "payload",
		Labels:  []types.Label{{LabelID: "l1", LabelType: types.LabelTypeText}},
	}
}

func TestUpgrade(t *testing.T) {
	tests := []struct {
		name        string
		have        types.Version
		wantResult  Result
		wantVersion types.Version
	}{
		{"0.0 upgrades to 1.1", types.Version{Major: 0, Minor: 0}, Upgraded, types.Version{Major: 1, Minor: 1}},
		{"1.0 upgrades minor only", types.Version{Major: 1, Minor: 0}, Upgraded, types.Version{Major: 1, Minor: 1}},
		{"1.1 unchanged", types.Version{Major: 1, Minor: 1}, NoUpgrade, types.Version{Major: 1, Minor: 1}},
		{"newer minor left alone", types.Version{Major: 1, Minor: 2}, NoUpgrade, types.Version{Major: 1, Minor: 2}},
		{"newer major rejected", types.Version{Major: 2, Minor: 5}, TooNew, types.Version{Major: 2, Minor: 5}},
		{"newer major with older minor rejected", types.Version{Major: 2, Minor: 0}, TooNew, types.Version{Major: 2, Minor: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schemaAt(tt.have.Major, tt.have.Minor)
			before := s.Clone()

			got, err := Upgrade(s, 1, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, got)
			assert.Equal(t, tt.wantVersion, s.Version)

			// Payload is never touched.
			assert.Equal(t, before.Title, s.Title)
			assert.Equal(t, before.Labels, s.Labels)
		})
	}
}

func TestUpgradeTooNewDoesNotMutate(t *testing.T) {
	s := schemaAt(types.CurrentMajorVersion+1, types.CurrentMinorVersion)
	before := s.Clone()

	got, err := Upgrade(s, types.CurrentMajorVersion, types.CurrentMinorVersion)
	require.NoError(t, err)
	assert.Equal(t, TooNew, got)
	assert.Equal(t, before, s)
}

func TestUpgradeMissingMajorStep(t *testing.T) {
	s := schemaAt(1, 3)
	before := s.Clone()

	got, err := Upgrade(s, 3, 0)
	require.ErrorIs(t, err, ErrNoMajorUpgradePath)
	assert.Equal(t, NoUpgrade, got)
	assert.Equal(t, before, s)
}

func TestUpgradeRunsRegisteredSteps(t *testing.T) {
	const from = int32(40)
	RegisterMajorStep(from, func(s *types.ExperimentSchema) error {
		s.Description = "migrated from 40"
		return nil
	})
	t.Cleanup(func() {
		stepsMu.Lock()
		delete(steps, from)
		stepsMu.Unlock()
	})

	s := schemaAt(from, 7)
	got, err := Upgrade(s, from+1, 2)
	require.NoError(t, err)
	assert.Equal(t, Upgraded, got)
	assert.Equal(t, types.Version{Major: from + 1, Minor: 2}, s.Version)
	assert.Equal(t, "migrated from 40", s.Description)
}

func TestUpgradeFailingStepLeavesSchema(t *testing.T) {
	const from = int32(50)
	boom := errors.New("boom")
	RegisterMajorStep(from, func(s *types.ExperimentSchema) error {
		s.Title = "half-written"
		return boom
	})
	t.Cleanup(func() {
		stepsMu.Lock()
		delete(steps, from)
		stepsMu.Unlock()
	})

	s := schemaAt(from, 0)
	before := s.Clone()
	_, err := Upgrade(s, from+1, 0)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, s)
}

func TestUpgradeNil(t *testing.T) {
	_, err := Upgrade(nil, 1, 1)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestIsNewerThan(t *testing.T) {
	assert.True(t, IsNewerThan(types.Version{Major: 1, Minor: 2}, 1, 1))
	assert.True(t, IsNewerThan(types.Version{Major: 2, Minor: 0}, 1, 1))
	assert.False(t, IsNewerThan(types.Version{Major: 1, Minor: 1}, 1, 1))
	assert.False(t, IsNewerThan(types.Version{Major: 1, Minor: 0}, 1, 1))
	assert.False(t, IsNewerThan(types.Version{Major: 0, Minor: 9}, 1, 1))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "upgraded", Upgraded.String())
	assert.Equal(t, "too-new", TooNew.String())
	assert.Equal(t, "Result(9)", Result(9).String())
}
