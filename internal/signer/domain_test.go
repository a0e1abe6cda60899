package signer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainSeparatorDeterministic(t *testing.T) {
	d := TestnetDomain()
	s1 := d.Separator()
	s2 := d.Separator()
	require.Equal(t, s1, s2)
	require.Len(t, s1, 32)
}

func TestDomainSeparatorChangesWithConstants(t *testing.T) {
	base := TestnetDomain()
	baseSep := base.Separator()

	variants := []Domain{base, base, base, base, base}
	variants[0].Name = "Something Else"
	variants[1].Version = "2.0.0"
	variants[2].ChainID = 1
	variants[3].VerifyingContract = "not-cosmos"
	variants[4].Salt = "1"

	for _, v := range variants {
		require.NotEqual(t, baseSep, v.Separator())
	}
}
