package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodMetadata = `{
  "name": "Proof of Governance",
  "symbol": "POG",
  "description": "Soul-bound governance credential",
  "image": "IMAGE_URL",
  "external_url": "https://example.org",
  "attributes": [
    {"trait_type": "Transferable", "value": "No"},
    {"trait_type": "Burnable", "value": "Yes - By Authority Only"},
    {"trait_type": "Network", "value": "Solana Devnet"},
    {"trait_type": "Standard", "value": "Token Metadata"},
    {"trait_type": "Verification Tier", "value": "Bronze"}
  ],
  "properties": {"category": "image"},
  "custom_fields": {"dao": "example"}
}`

func metadataServer(t *testing.T, doc string, imageStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/metadata/metadata.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(replaceImage(doc, srv.URL+"/images/pog-token.png")))
	})
	mux.HandleFunc("/images/pog-token.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(imageStatus)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func replaceImage(doc, url string) string {
	return strings.ReplaceAll(doc, "IMAGE_URL", url)
}

func TestMetadataCheck_AllGood(t *testing.T) {
	srv := metadataServer(t, goodMetadata, http.StatusOK)
	u := NewMetadataUsecase(nil)

	rep, err := u.Check(context.Background(), MetadataCheckInput{
		MetadataURI:      srv.URL + "/metadata/metadata.json",
		ExpectedNetwork:  "Solana Devnet",
		ExpectedStandard: "Token Metadata",
	})
	require.NoError(t, err)
	assert.True(t, rep.OK)
	require.NotNil(t, rep.Document)
	assert.Equal(t, "POG", rep.Document.Symbol)
	assert.Len(t, rep.URLs, 2)
	for _, c := range rep.Checks {
		assert.True(t, c.OK, c.Name)
	}
	assert.Equal(t, "example", rep.Document.CustomFields["dao"])

	var tier string
	for _, g := range rep.Governance {
		if g.Name == "Verification Tier" {
			tier = g.Actual
		}
	}
	assert.Equal(t, "Bronze", tier)
}

func TestMetadataCheck_WrongAttributesAndMissingImage(t *testing.T) {
	doc := `{"name":"Proof of Governance","symbol":"POG","image":"IMAGE_URL","attributes":[{"trait_type":"Transferable","value":"Yes"}]}`
	srv := metadataServer(t, doc, http.StatusNotFound)

	rep, err := NewMetadataUsecase(nil).Check(context.Background(), MetadataCheckInput{
		MetadataURI:     srv.URL + "/metadata/metadata.json",
		ExpectedNetwork: "Solana Devnet",
	})
	assert.ErrorIs(t, err, ErrMetadataUnreachable)
	assert.False(t, rep.OK)

	failed := map[string]bool{}
	for _, c := range rep.Checks {
		if !c.OK {
			failed[c.Name] = true
		}
	}
	assert.True(t, failed[TraitTransferable])
	assert.True(t, failed[TraitBurnable])
	assert.True(t, failed[TraitNetwork])
	assert.True(t, failed["Has properties"])

	var image URLCheck
	for _, c := range rep.URLs {
		if c.Name == "Image URL" {
			image = c
		}
	}
	assert.Equal(t, http.StatusNotFound, image.Status)
	assert.False(t, image.OK)
}

func TestMetadataCheck_Unparseable(t *testing.T) {
	srv := metadataServer(t, "<html>404</html>", http.StatusOK)
	rep, err := NewMetadataUsecase(nil).Check(context.Background(), MetadataCheckInput{MetadataURI: srv.URL + "/metadata/metadata.json"})
	assert.ErrorIs(t, err, ErrMetadataUnreachable)
	assert.NotEmpty(t, rep.ParseErr)
	assert.Nil(t, rep.Document)
}

func TestMetadataCheck_EmptyURI(t *testing.T) {
	_, err := NewMetadataUsecase(nil).Check(context.Background(), MetadataCheckInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type fakePublisher struct {
	name string
	doc  []byte
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, name string, doc []byte) (string, error) {
	p.name, p.doc = name, doc
	if p.err != nil {
		return "", p.err
	}
	return "https://storage.googleapis.com/bucket/metadata/" + name, nil
}

func TestMetadataPublish(t *testing.T) {
	p := &fakePublisher{}
	u := NewMetadataUsecase(p)

	uri, err := u.Publish(context.Background(), "assets/metadata/metadata.json", []byte(goodMetadata))
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/bucket/metadata/metadata.json", uri)
	assert.Equal(t, "metadata.json", p.name)

	_, err = u.Publish(context.Background(), "m.json", []byte(`{"name":""}`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	p.err = errors.New("403")
	_, err = u.Publish(context.Background(), "m.json", []byte(goodMetadata))
	assert.ErrorContains(t, err, "403")

	_, err = NewMetadataUsecase(nil).Publish(context.Background(), "m.json", []byte(goodMetadata))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
