package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/constants"
)

var testDefaults = Defaults{
	constants.Fuel:        "NAF",
	constants.Category:    "1",
	constants.Destination: "1",
	constants.Quality:     "1",
	constants.Department:  "1",
	constants.Currency:    "1",
	constants.Payment:     "CONTADO",
}

func loadFixture(t *testing.T) MasterData {
	t.Helper()
	data, err := LoadFile("testdata/master.yaml")
	require.NoError(t, err)
	return data
}
