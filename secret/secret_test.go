package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/scy"
)

func TestResolver_Resolve(t *testing.T) {
	var testCases = []struct {
		description string
		value       string
		loadErr     error
		expect      string
		expectURL   string
		expectKey   string
		expectErr   bool
	}{
		{description: "plain value", value: "k1", expect: "k1"},
		{description: "reference with key", value: "secret:/tmp/paywall.json|blowfish://default", expect: "k2", expectURL: "/tmp/paywall.json", expectKey: "blowfish://default"},
		{description: "reference without key", value: "secret:mem://localhost/key.txt", expect: "k2", expectURL: "mem://localhost/key.txt"},
		{description: "empty reference", value: "secret:", expectErr: true},
		{description: "load failure", value: "secret:/tmp/missing", loadErr: errors.New("not found"), expectErr: true, expectURL: "/tmp/missing"},
	}
	for _, testCase := range testCases {
		var loaded *scy.Resource
		resolver := New(WithLoader(func(ctx context.Context, resource *scy.Resource) (string, error) {
			loaded = resource
			if testCase.loadErr != nil {
				return "", testCase.loadErr
			}
			return "k2\n", nil
		}))
		actual, err := resolver.Resolve(context.Background(), testCase.value)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
		} else {
			require.NoError(t, err, testCase.description)
			assert.Equal(t, testCase.expect, actual, testCase.description)
		}
		if testCase.expectURL == "" {
			continue
		}
		require.NotNil(t, loaded, testCase.description)
		assert.Equal(t, testCase.expectURL, loaded.URL, testCase.description)
		assert.Equal(t, testCase.expectKey, loaded.Key, testCase.description)
	}
}
