package sentence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	text := "Le couple a confirmé la nouvelle. Les fans attendaient cette annonce depuis des mois ! Que va-t-il se passer maintenant ?"

	got := Split(text)
	require.Equal(t, []string{
		"Le couple a confirmé la nouvelle.",
		"Les fans attendaient cette annonce depuis des mois !",
		"Que va-t-il se passer maintenant ?",
	}, got)
}

func TestSplitSingleSentence(t *testing.T) {
	got := Split("Une seule phrase sans ponctuation finale")
	require.Equal(t, []string{"Une seule phrase sans ponctuation finale"}, got)
}

func TestSplitEmpty(t *testing.T) {
	require.Nil(t, Split(""))
	require.Nil(t, Split("   \n\t  "))
}
