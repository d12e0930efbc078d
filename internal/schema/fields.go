package schema

// Kind is the value shape of a form field.
type Kind int

const (
	KindString Kind = iota
	KindStringSet
)

func (k Kind) String() string {
	if k == KindStringSet {
		return "string-set"
	}
	return "string"
}

// FieldDefinition describes one field of the access request form.
// Name is the stable identifier used internally and with the model,
// Alias is the label written to records, CSV headers and API responses.
type FieldDefinition struct {
	Name  string
	Alias string
	Kind  Kind
	Hint  string // short French description shown to the model
}

// Field names.
const (
	NomEtPrenom              = "nom_et_prenom"
	Email                    = "email"
	Fonction                 = "fonction"
	ResponsableHierarchique  = "responsable_hierarchique"
	Matricule                = "matricule"
	EntiteN                  = "entite_n"
	EntiteNPlus2             = "entite_n_plus_2"
	AccesSysteme             = "acces_systeme"
	Commentaires             = "commentaires"
	DonneesAnonymisees       = "donnees_anonymisees"
	DonneesPersonnelles      = "donnees_personnelles"
	FamilleDeDonnees         = "famille_de_donnees"
	FinaliteDeBesoin         = "finalite_de_besoin"
	FormationBusinessObject  = "formation_business_object"
	FormationQlikView        = "formation_qlikview"
	FormationSQL             = "formation_sql"
	ProfilAAffecter          = "profil_a_affecter"
	PerimetreDeDonnees       = "perimetre_de_donnees"
	SourceDeDonnees          = "source_de_donnees"
	SignatureDPO             = "signature_dpo"
	SignatureAdminDataOffice = "signature_admin_data_office"
	SignatureEtudesSIG       = "signature_etudes_sig"
	SignatureHierarchie      = "signature_hierarchie"
	SignatureDemandeur       = "signature_demandeur"
)

var canonical = []FieldDefinition{
	{Name: NomEtPrenom, Alias: "Nom et Prénom", Hint: "Nom et prénom du demandeur."},
	{Name: Email, Alias: "Email", Hint: "Adresse email du demandeur."},
	{Name: Fonction, Alias: "Fonction", Hint: "Fonction ou poste du demandeur."},
	{Name: ResponsableHierarchique, Alias: "Responsable Hiérarchique", Hint: "Nom du responsable hiérarchique."},
	{Name: Matricule, Alias: "Matricule", Hint: "Matricule du demandeur."},
	{Name: EntiteN, Alias: "Entité N", Hint: "Entité de rattachement (niveau N)."},
	{Name: EntiteNPlus2, Alias: "Entité N+2", Hint: "Entité de rattachement (niveau N+2)."},
	{Name: AccesSysteme, Alias: "Accès Système", Kind: KindStringSet, Hint: "Liste des systèmes cochés parmi Borj-Pilotage, QlikView, QlikSense, DataLake, IBM DataStage."},
	{Name: Commentaires, Alias: "Commentaires", Hint: "Texte de la section commentaires et informations complémentaires."},
	{Name: DonneesAnonymisees, Alias: "Données Anonymisées", Hint: "Oui ou Non : les données doivent-elles être anonymisées."},
	{Name: DonneesPersonnelles, Alias: "Données personnelles", Hint: "Oui ou Non : accès à des données à caractère personnel."},
	{Name: FamilleDeDonnees, Alias: "Famille de données", Hint: "Familles de données à piloter ou manipuler."},
	{Name: FinaliteDeBesoin, Alias: "Finalité de besoin", Hint: "Finalité de la demande d'accès, texte descriptif."},
	{Name: FormationBusinessObject, Alias: "Formation Business Object", Hint: "Oui ou Non : formation Business Object suivie."},
	{Name: FormationQlikView, Alias: "Formation QlikView", Hint: "Oui ou Non : formation QlikView suivie."},
	{Name: FormationSQL, Alias: "Formation SQL", Hint: "Oui ou Non : formation SQL suivie."},
	{Name: ProfilAAffecter, Alias: "Profil à affecter", Hint: "Texte de la section Profil ou layer(s) à affecter."},
	{Name: PerimetreDeDonnees, Alias: "Périmètre de données", Hint: "Description du périmètre de données demandé."},
	{Name: SourceDeDonnees, Alias: "Source de données", Hint: "Source de données précisée par le demandeur."},
	{Name: SignatureDPO, Alias: "Signature Data Protection Office", Hint: "Présente ou Absente."},
	{Name: SignatureAdminDataOffice, Alias: "Signature Administration Fonctionnelle Data Office", Hint: "Présente ou Absente."},
	{Name: SignatureEtudesSIG, Alias: "Signature Etudes et développements SIG", Hint: "Présente ou Absente."},
	{Name: SignatureHierarchie, Alias: "Signature Hiérarchie", Hint: "Présente ou Absente."},
	{Name: SignatureDemandeur, Alias: "Signature du demandeur", Hint: "Présente ou Absente."},
}

var (
	byName  = make(map[string]int, len(canonical))
	byAlias = make(map[string]int, len(canonical))
)

func init() {
	for i, d := range canonical {
		byName[d.Name] = i
		byAlias[d.Alias] = i
	}
}

// Canonical returns the field definitions in form order.
func Canonical() []FieldDefinition {
	out := make([]FieldDefinition, len(canonical))
	copy(out, canonical)
	return out
}

// Names returns the canonical field names in form order.
func Names() []string {
	out := make([]string, len(canonical))
	for i, d := range canonical {
		out[i] = d.Name
	}
	return out
}

// Aliases returns the canonical aliases in form order, used as table headers.
func Aliases() []string {
	out := make([]string, len(canonical))
	for i, d := range canonical {
		out[i] = d.Alias
	}
	return out
}

func ByName(name string) (FieldDefinition, bool) {
	i, ok := byName[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return canonical[i], true
}

func ByAlias(alias string) (FieldDefinition, bool) {
	i, ok := byAlias[alias]
	if !ok {
		return FieldDefinition{}, false
	}
	return canonical[i], true
}

// Select filters the canonical list down to the given names, keeping form
// order and dropping duplicates and names that are not canonical fields.
func Select(names []string) []FieldDefinition {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]FieldDefinition, 0, len(want))
	for _, d := range canonical {
		if _, ok := want[d.Name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// IsSignature reports whether the field records a signature zone.
func IsSignature(name string) bool {
	switch name {
	case SignatureDPO, SignatureAdminDataOffice, SignatureEtudesSIG, SignatureHierarchie, SignatureDemandeur:
		return true
	}
	return false
}

// IsCheckbox reports whether the field is a Oui/Non checkbox answer.
func IsCheckbox(name string) bool {
	switch name {
	case DonneesPersonnelles, DonneesAnonymisees, FormationBusinessObject, FormationQlikView, FormationSQL:
		return true
	}
	return false
}
