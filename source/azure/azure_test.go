package azure

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	t.Setenv("AZURE_STORAGE_KEY", "ZW52LWtleQ==")

	tests := []struct {
		raw     string
		want    Config
		wantErr bool
	}{
		{
			raw:  "azblob://acct/inbox",
			want: Config{AccountName: "acct", AccountKey: "ZW52LWtleQ==", ContainerName: "inbox"},
		},
		{
			raw: "azblob://devstoreaccount1/inbox/2024/q1?key=a2V5&endpoint=http://127.0.0.1:10000/devstoreaccount1",
			want: Config{
				AccountName:   "devstoreaccount1",
				AccountKey:    "a2V5",
				ContainerName: "inbox",
				Prefix:        "2024/q1/",
				Endpoint:      "http://127.0.0.1:10000/devstoreaccount1",
			},
		},
		{raw: "azblob://acct", wantErr: true},
		{raw: "azblob:///inbox", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			require.NoError(t, err)

			cfg, err := ParseURL(u)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestServiceURL(t *testing.T) {
	assert.Equal(t, "https://acct.blob.core.windows.net/", Config{AccountName: "acct"}.ServiceURL())
	assert.Equal(t, "http://localhost:10000/x", Config{AccountName: "acct", Endpoint: "http://localhost:10000/x"}.ServiceURL())
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Config{AccountName: "acct"})
	require.NoError(t, err)
	assert.NotNil(t, client)

	client, err = NewClient(Config{AccountName: "acct", AccountKey: "a2V5"})
	require.NoError(t, err)
	assert.NotNil(t, New(client, "inbox", WithPrefix("2024")))

	_, err = NewClient(Config{AccountName: "acct", AccountKey: "not base64!"})
	assert.Error(t, err)
}
