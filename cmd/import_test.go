package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastroops/opsdeck/internal/model"
)

var resolveFixture = []model.Site{
	{ID: "s1", CompanyID: "c1", Name: "Harbour Street"},
	{ID: "s2", CompanyID: "c1", Name: "Old Town"},
}

func TestResolveSites_AllSites(t *testing.T) {
	ids, err := resolveSites(resolveFixture, nil, true, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
}

func TestResolveSites_ByNameOrID(t *testing.T) {
	ids, err := resolveSites(resolveFixture, []string{"old town", "s1"}, false, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, ids)

	_, err = resolveSites(resolveFixture, []string{"Riverside"}, false, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Riverside")
}

func TestResolveSites_FallsBackToCSVSiteName(t *testing.T) {
	ids, err := resolveSites(resolveFixture, nil, false, "harbour")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	_, err = resolveSites(resolveFixture, nil, false, "")
	assert.Error(t, err)
}
