package acvp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareDetectsMismatch(t *testing.T) {
	expected := `[{"acvVersion":"1.0"},{"vsId":1,"testGroups":[{"tgId":1,"tests":[
		{"tcId":1,"masterSecret":"AABB","keyBlock":"01"},
		{"tcId":2,"masterSecret":"ccdd","keyBlock":"02"}]}]}]`
	response := `{"vsId":1,"testGroups":[{"tgId":1,"tests":[
		{"tcId":1,"masterSecret":"aabb","keyBlock":"01"},
		{"tcId":2,"masterSecret":"ccdd","keyBlock":"ff"}]}]}`

	report, err := Compare([]byte(response), []byte(expected))
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, []Mismatch{{TestRef: TestRef{GroupID: 1, TestID: 2}, Field: "keyBlock"}}, report.Mismatches)
}

func TestCompareMissingField(t *testing.T) {
	expected := `{"vsId":1,"testGroups":[{"tgId":3,"tests":[{"tcId":5,"masterSecret":"00","testPassed":true}]}]}`
	response := `{"vsId":1,"testGroups":[{"tgId":3,"tests":[{"tcId":5,"masterSecret":"00"}]}]}`

	report, err := Compare([]byte(response), []byte(expected))
	require.NoError(t, err)
	assert.Equal(t, []Mismatch{{TestRef: TestRef{GroupID: 3, TestID: 5}, Field: "testPassed"}}, report.Mismatches)
}

func TestCompareRejectsGarbage(t *testing.T) {
	_, err := Compare([]byte("not json"), []byte(`{"testGroups":[]}`))
	assert.Error(t, err)
}

func TestCompareFoldsCaseOnlyForHex(t *testing.T) {
	expected := `{"vsId":1,"testGroups":[{"tgId":1,"tests":[
		{"tcId":1,"masterSecret":"AaBb","note":"Passed"}]}]}`
	response := `{"vsId":1,"testGroups":[{"tgId":1,"tests":[
		{"tcId":1,"masterSecret":"aabb","note":"passed"}]}]}`

	report, err := Compare([]byte(response), []byte(expected))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Passed)
	assert.Equal(t, []Mismatch{{TestRef: TestRef{GroupID: 1, TestID: 1}, Field: "note"}}, report.Mismatches)
}
