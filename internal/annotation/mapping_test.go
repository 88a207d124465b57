package annotation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"complexome/internal/config"
)

func TestParseMappingResponse(t *testing.T) {
	mapped, err := ParseMappingResponse("From\tTo\nP11111\t9606.ENSP1\nP22222\t9606.ENSP2\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"P11111": "9606.ENSP1", "P22222": "9606.ENSP2"}, mapped)

	mapped, err = ParseMappingResponse("From\tTo\n")
	require.NoError(t, err)
	assert.Empty(t, mapped)

	_, err = ParseMappingResponse("From\tTo\nP1 without tab\n")
	assert.Error(t, err)
}

func TestMapper_FormatQuery(t *testing.T) {
	m, err := NewMapper(nil, config.StringLinkoutParameters{RegexPattern: `-[0-9]$`}, nil)
	require.NoError(t, err)
	assert.Equal(t, "P11111 Q22222 ", m.FormatQuery([]string{"P11111", "Q22222-2"}))

	m, err = NewMapper(nil, config.StringLinkoutParameters{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Q22222-2 ", m.FormatQuery([]string{"Q22222-2"}))

	_, err = NewMapper(nil, config.StringLinkoutParameters{RegexPattern: "("}, nil)
	assert.Error(t, err)
}

func TestMakeHyperlink(t *testing.T) {
	assert.Equal(t,
		null.StringFrom(`=HYPERLINK("https://www.uniprot.org/uniprot/P11111", "P11111")`),
		MakeHyperlink("https://www.uniprot.org/uniprot/P11111"))
	assert.False(t, MakeHyperlink("").Valid)
}

func TestMapper_Linkouts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ACC+ID", r.PostForm.Get("from"))
		assert.Equal(t, "STRING_ID", r.PostForm.Get("to"))
		assert.Equal(t, "tab", r.PostForm.Get("format"))
		assert.Equal(t, "P11111 Q22222 P33333 ", r.PostForm.Get("query"))
		w.Write([]byte("From\tTo\nP11111\t9606.ENSP1\nQ22222\t9606.ENSP2\n"))
	}))
	defer server.Close()

	params := config.StringLinkoutParameters{
		RegexPattern:             `-[0-9]$`,
		UniprotMappingServiceURL: server.URL,
		StringBaseURL:            "https://string-db.org/network/",
	}
	m, err := NewMapper(NewClient(testHTTPConfig(), nil), params, nil)
	require.NoError(t, err)

	links, err := m.Linkouts(context.Background(), []string{"P11111", "Q22222-2", "P33333"})
	require.NoError(t, err)
	assert.Equal(t, `=HYPERLINK("https://string-db.org/network/9606.ENSP1", "9606.ENSP1")`, links["P11111"].String)
	assert.True(t, links["Q22222-2"].Valid, "isoforms resolve through their canonical accession")
	assert.False(t, links["P33333"].Valid)
}
