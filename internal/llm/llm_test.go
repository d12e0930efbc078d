package llm

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

func TestParseJSONObject(t *testing.T) {
	ok := map[string]string{
		"plain":  `{"email":"a@b.fr"}`,
		"fenced": "```json\n{\"email\":\"a@b.fr\"}\n```",
		"prose":  "Voici le résultat : {\"email\":\"a@b.fr\"} Merci.",
	}
	for name, in := range ok {
		t.Run(name, func(t *testing.T) {
			b, err := ParseJSONObject(in)
			require.NoError(t, err)
			assert.JSONEq(t, `{"email":"a@b.fr"}`, string(b))
		})
	}

	for _, in := range []string{"", "   ", "null", "[1,2]", "pas de json"} {
		_, err := ParseJSONObject(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestSanitizeInferred(t *testing.T) {
	defs := schema.Select([]string{
		schema.Matricule, schema.SignatureDemandeur, schema.FormationSQL,
		schema.AccesSysteme, schema.Fonction,
	})
	in := `{
		"matricule": 12345,
		"signature_demandeur": "signée",
		"formation_sql": "peut-être",
		"acces_systeme": ["qliksense", "Inconnu", "QlikSense", "IBM DataStage"],
		"fonction": "  Analyste \n données ",
		"extra": "x"
	}`
	out, dropped, err := SanitizeInferred([]byte(in), defs)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "12345", m["matricule"])
	assert.Equal(t, "Présente", m["signature_demandeur"])
	assert.Equal(t, "Analyste données", m["fonction"])
	assert.Equal(t, []any{"QlikSense", "IBM DataStage"}, m["acces_systeme"])
	assert.NotContains(t, m, "formation_sql")
	assert.NotContains(t, m, "extra")
	assert.ElementsMatch(t, []string{"formation_sql(value)", "extra(unknown)"}, dropped)
}

func TestSanitizeCheckboxAnswers(t *testing.T) {
	defs := schema.Select([]string{schema.DonneesPersonnelles, schema.DonneesAnonymisees})
	out, _, err := SanitizeInferred([]byte(`{"donnees_personnelles":"OUI","donnees_anonymisees":false}`), defs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"donnees_personnelles":"Oui","donnees_anonymisees":"Non"}`, string(out))
}

func TestBuildInstructionConditionalRules(t *testing.T) {
	only := func(names ...string) string {
		sch, defs := schema.ReducedJSONSchema(names)
		return BuildInstruction(defs, sch)
	}

	sig := only(schema.SignatureDPO)
	assert.Contains(t, sig, "Présente")
	assert.Contains(t, sig, "signature_dpo")
	assert.NotContains(t, sig, "Profil à affecter :")

	prof := only(schema.ProfilAAffecter, schema.Commentaires)
	assert.Contains(t, prof, "Profil ou layer(s) à affecter")
	assert.Contains(t, prof, "Finalité et Commentaires")
	assert.NotContains(t, prof, "Signatures :")

	plain := only(schema.Email)
	assert.NotContains(t, plain, "Instructions clés")
	assert.Contains(t, plain, `"email"`)
}

func TestLongNumbersKeepEveryDigit(t *testing.T) {
	raw, err := ParseJSONObject(`{"matricule": 123456789012345678}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"matricule": 123456789012345678}`, string(raw))
	assert.Contains(t, string(raw), "123456789012345678")

	out, dropped, err := SanitizeInferred(raw, schema.Select([]string{schema.Matricule}))
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.JSONEq(t, `{"matricule":"123456789012345678"}`, string(out))
}

func TestParseJSONObjectRejectsTrailingValue(t *testing.T) {
	_, err := ParseJSONObject(`{"email":"a@b.fr"} {"email":"c@d.fr"}`)
	assert.Error(t, err)

	_, err = decodeObject([]byte(`{"email":"a@b.fr"} x`))
	assert.Error(t, err)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "court", truncate("court", 10))
	// "é" is two bytes; a cut at 3 would split the second one.
	got := truncate("éé", 3)
	assert.Equal(t, "é...(truncated)", got)
	assert.True(t, utf8.ValidString(got))
}
