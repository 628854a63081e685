package issuer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/dropDatabas3/trueseal/internal/store/memory"
)

func validSpec(count int) BatchSpec {
	return BatchSpec{
		ProductRef:      "sku-100",
		ManufacturerRef: "acme",
		BatchNumber:     "B-001",
		Count:           count,
	}
}

func TestIssueBatch(t *testing.T) {
	repo := memory.New()
	iss := New(repo)
	ctx := context.Background()

	issued, err := iss.IssueBatch(ctx, validSpec(5), "operator-1")
	require.NoError(t, err)
	require.Len(t, issued, 5)

	seenSecrets := map[string]bool{}
	seenHashes := map[string]bool{}
	for _, it := range issued {
		require.NotEmpty(t, it.Secret)
		require.False(t, seenSecrets[it.Secret], "secrets must be unique")
		require.False(t, seenHashes[it.Token.SecretHash], "hashes must be unique")
		seenSecrets[it.Secret] = true
		seenHashes[it.Token.SecretHash] = true

		require.Equal(t, core.StateActive, it.Token.State)
		require.Nil(t, it.Token.ExpiresAt)

		// Cada token arranca su historial con una entrada Issued.
		entries, err := repo.History(ctx, it.Token.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, core.EventIssued, entries[0].EventType)
		require.Equal(t, "B-001", entries[0].Payload["batch_ref"])

		// El token es rescatable por hash.
		got, err := repo.FetchBySecretHash(ctx, it.Token.SecretHash)
		require.NoError(t, err)
		require.Equal(t, it.Token.ID, got.ID)
	}
}

func TestIssueBatch_TTL(t *testing.T) {
	repo := memory.New()
	iss := New(repo)

	spec := validSpec(1)
	spec.TTL = 24 * time.Hour
	issued, err := iss.IssueBatch(context.Background(), spec, "operator-1")
	require.NoError(t, err)
	require.NotNil(t, issued[0].Token.ExpiresAt)
	require.Equal(t, issued[0].Token.IssuedAt.Add(24*time.Hour), *issued[0].Token.ExpiresAt)
}

func TestIssueBatch_Validation(t *testing.T) {
	repo := memory.New()
	iss := New(repo)
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*BatchSpec)
	}{
		{"missing product", func(s *BatchSpec) { s.ProductRef = "" }},
		{"missing manufacturer", func(s *BatchSpec) { s.ManufacturerRef = "" }},
		{"missing batch number", func(s *BatchSpec) { s.BatchNumber = "" }},
		{"zero count", func(s *BatchSpec) { s.Count = 0 }},
		{"count too large", func(s *BatchSpec) { s.Count = 10_001 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spec := validSpec(3)
			c.mut(&spec)
			_, err := iss.IssueBatch(ctx, spec, "operator-1")
			require.Error(t, err)
			require.True(t, errors.Is(err, core.ErrInvalid))
		})
	}
}
