package transformer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVTransformer_DefaultFields(t *testing.T) {
	tr, err := ForName("csv", nil)
	require.NoError(t, err)

	header, err := tr.Header()
	require.NoError(t, err)
	require.Equal(t, "LogIndex,Hash,Subject,OIDCIssuer,GitHubWorkflowTrigger,GitHubWorkflowSHA,GitHubWorkflowName,GitHubWorkflowRepository,GitHubWorkflowRef\n", string(header))

	row, err := tr.Transform(sampleRecord())
	require.NoError(t, err)
	require.Equal(t, "12,sha256:abcd,https://github.com/octo/repo/.github/workflows/ci.yml@refs/heads/main,https://token.actions.githubusercontent.com,,,,,\n", string(row))
}

func TestCSVTransformer_SelectedFields(t *testing.T) {
	tr, err := ForName("csv", map[string]interface{}{"fields": []interface{}{"Hash", "LogIndex"}})
	require.NoError(t, err)

	header, err := tr.Header()
	require.NoError(t, err)
	require.Equal(t, "Hash,LogIndex\n", string(header))

	row, err := tr.Transform(sampleRecord())
	require.NoError(t, err)
	require.Equal(t, "sha256:abcd,12\n", string(row))
}

func TestCSVTransformer_BadFields(t *testing.T) {
	_, err := ForName("csv", map[string]interface{}{"fields": []interface{}{"Nope"}})
	require.Error(t, err)

	_, err = ForName("csv", map[string]interface{}{"fields": []interface{}{}})
	require.Error(t, err)

	_, err = ForName("csv", map[string]interface{}{"fields": "LogIndex"})
	require.Error(t, err)
}
