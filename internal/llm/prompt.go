package llm

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

// BuildInstruction composes the extraction instruction for the requested
// fields. Interpretation rules are only included for fields that need them.
func BuildInstruction(defs []schema.FieldDefinition, schemaMap map[string]any) string {
	var narrative, signatures, checkboxes, profile, systems bool
	for _, d := range defs {
		switch {
		case schema.IsSignature(d.Name):
			signatures = true
		case d.Name == schema.FinaliteDeBesoin || d.Name == schema.Commentaires:
			narrative = true
		case d.Name == schema.ProfilAAffecter:
			profile = true
		case d.Name == schema.AccesSysteme:
			systems = true
		case schema.IsCheckbox(d.Name):
			checkboxes = true
		}
	}

	parts := []string{
		"Vous êtes un assistant expert en analyse de formulaires. Le texte fourni est extrait d'un formulaire de demande d'accès aux données.",
		"Votre unique tâche est d'extraire les informations correspondant aux champs du schéma JSON ci-dessous.",
		"Répondez UNIQUEMENT par un objet JSON conforme au schéma. N'ajoutez aucun autre champ.",
		"Si une information est absente du document, omettez le champ. N'écrivez jamais null ni \"N/A\".",
	}
	var rules []string
	if narrative {
		rules = append(rules, "Finalité et Commentaires : lisez les sections correspondantes et extrayez le texte descriptif tel qu'écrit.")
	}
	if signatures {
		rules = append(rules, "Signatures : pour chaque champ \"signature_...\", si une signature manuscrite, une date ou toute marque figure dans la zone correspondante, la valeur est \"Présente\". Si la zone est vide, la valeur est \"Absente\". Ne transcrivez jamais la signature.")
	}
	if profile {
		rules = append(rules, "Profil à affecter : extrayez le texte de la section \"Profil ou layer(s) à affecter\".")
	}
	if checkboxes {
		rules = append(rules, "Cases à cocher : répondez \"Oui\" si la case Oui est cochée (☑ ou ☒), sinon \"Non\".")
	}
	if systems {
		rules = append(rules, "Accès Système : listez uniquement les systèmes dont la case est cochée, parmi Borj-Pilotage, QlikView, QlikSense, DataLake, IBM DataStage.")
	}
	if len(rules) > 0 {
		parts = append(parts, "Instructions clés :")
		for i, r := range rules {
			parts = append(parts, strconv.Itoa(i+1)+". "+r)
		}
	}
	parts = append(parts, "Schéma JSON à respecter :", mustJSON(schemaMap))
	return strings.Join(parts, "\n")
}

// truncateDocument keeps at most max runes of text.
func truncateDocument(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i] + "\n…(tronqué)"
		}
		n++
	}
	return text
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
