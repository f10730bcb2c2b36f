// Package rules holds the static keyword tables used by the rule-based
// classifier: themes, administrative subdivisions, urgency phrases and legal
// vocabulary. Tables are immutable after construction; Default returns a
// fresh copy on every call so callers can never alter the built-in set.
package rules

// FallbackTheme is assigned when no theme keyword matches.
const FallbackTheme = "other"

// Theme is a labelled keyword list. Order of themes in Tables is significant:
// it breaks ties between equal hit counts.
type Theme struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Tables is the complete rule set.
type Tables struct {
	Themes         []Theme  `yaml:"themes"`
	Subdivisions   []string `yaml:"subdivisions"`
	UrgencyPhrases []string `yaml:"urgency"`
	TechnicalTerms []string `yaml:"technical"`
}

// ThemeNames lists theme labels in table order.
func (t Tables) ThemeNames() []string {
	names := make([]string, 0, len(t.Themes))
	for _, th := range t.Themes {
		names = append(names, th.Name)
	}

	return names
}

// Default returns the built-in tables.
func Default() Tables {
	themes := make([]Theme, 0, len(defaultThemes))
	for _, th := range defaultThemes {
		themes = append(themes, Theme{Name: th.Name, Keywords: cloneStrings(th.Keywords)})
	}

	return Tables{
		Themes:         themes,
		Subdivisions:   cloneStrings(defaultSubdivisions),
		UrgencyPhrases: cloneStrings(defaultUrgencyPhrases),
		TechnicalTerms: cloneStrings(defaultTechnicalTerms),
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)

	return out
}

var defaultThemes = []Theme{
	{Name: "sante", Keywords: []string{
		"santé", "hôpital", "hôpitaux", "médecin", "médicament", "soins", "maladie",
		"infirmier", "vaccin", "chirurgie", "urgence", "santé publique", "centre de santé",
		"personnel médical",
	}},
	{Name: "education", Keywords: []string{
		"école", "écoles", "université", "enseignement", "formation", "enseignant",
		"professeur", "étudiant", "élève", "programme scolaire", "alphabétisation",
		"bourse", "infrastructure scolaire",
	}},
	{Name: "justice", Keywords: []string{
		"justice", "tribunal", "procès", "avocat", "droit", "prison", "condamnation",
		"juridique", "magistrat", "code pénal", "infraction", "litige", "détention",
	}},
	{Name: "environnement", Keywords: []string{
		"environnement", "écologie", "pollution", "climat", "réchauffement", "biodiversité",
		"déforestation", "énergies renouvelables", "eau potable", "déchets", "développement durable",
	}},
	{Name: "securite", Keywords: []string{
		"sécurité", "police", "gendarmerie", "violence", "criminalité", "armée", "terrorisme",
		"insécurité", "forces de l'ordre", "sécurisation", "délinquance",
	}},
	{Name: "agriculture", Keywords: []string{
		"agriculture", "agriculteur", "agricole", "récolte", "engrais", "semence", "eau d'irrigation",
		"rural", "production agricole", "élevage", "pêche", "subvention agricole", "intrants",
	}},
	{Name: "economie", Keywords: []string{
		"économie", "emploi", "croissance", "pib", "inflation", "chômage", "marché",
		"entreprise", "investissement", "revenu", "budget", "impôts", "financement",
	}},
	{Name: "transport", Keywords: []string{
		"transport", "route", "infrastructure", "autoroute", "piste", "circulation",
		"rail", "train", "bus", "mobilité", "trafic", "véhicule",
	}},
	{Name: "energie", Keywords: []string{
		"énergie", "électricité", "senelec", "carburant", "panne d'électricité",
		"énergie solaire", "pétrole", "gaz", "facture", "centrale",
	}},
	{Name: "logement", Keywords: []string{
		"logement", "habitation", "immobilier", "construction", "hlm", "urbanisme",
		"terrain", "bail", "loyer",
	}},
	{Name: "fonction_publique", Keywords: []string{
		"fonction publique", "fonctionnaire", "emploi public", "recrutement", "nomination",
		"concours", "mutation", "carrière", "corps administratif",
	}},
	{Name: "culture", Keywords: []string{
		"culture", "patrimoine", "musée", "art", "cinéma", "événement culturel",
		"musique", "tradition", "identité culturelle", "festival",
	}},
	{Name: "numerique", Keywords: []string{
		"numérique", "internet", "connexion", "cybersécurité", "télécommunication",
		"réseau", "digitalisation", "technologie", "informatique",
	}},
}

// Departements of Senegal.
var defaultSubdivisions = []string{
	"Dakar", "Guediawaye", "Pikine", "Rufisque", "Bambey", "Diourbel", "Mbacke", "Fatick", "Foundiougne", "Gossas",
	"Birkilane", "Kaffrine", "Koungheul", "Malem Hodar", "Guinguineo", "Kaolack", "Nioro du Rip", "Kedougou", "Salemata",
	"Saraya", "Kolda", "Medina Yoro Foulah", "Velingara", "Kebemer", "Linguere", "Louga", "Kanel", "Matam", "Ranerou",
	"Dagana", "Podor", "Saint-Louis", "Bounkiling", "Goudomp", "Sedhiou", "Bakel", "Goudiry", "Koumpentoum", "Tambacounda",
	"Mbour", "Thies", "Tivaouane", "Bignona", "Oussouye", "Ziguinchor",
}

var defaultUrgencyPhrases = []string{
	"urgent", "immédiat", "rapidement", "dès que possible",
	"crise", "catastrophe", "danger", "risque grave",
}

var defaultTechnicalTerms = []string{"article", "décret", "loi", "réglementation", "jurisprudence"}
