package transformer

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestCBORTransformer(t *testing.T) {
	tr, err := ForName("cbor", nil)
	require.NoError(t, err)
	require.Equal(t, "cbor", tr.Extension())

	out, err := tr.Transform(sampleRecord())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, cbor.Unmarshal(out, &decoded))
	require.Equal(t, "sha256:abcd", decoded["Hash"])
	require.EqualValues(t, 12, decoded["LogIndex"])
	require.Equal(t, "https://token.actions.githubusercontent.com", decoded["OIDCIssuer"])
	require.NotContains(t, decoded, "GitHubWorkflowSHA")
}
