package normalize

// defaultAbbreviations is the built-in laboratory shorthand table used when no
// dictionary file is configured. Entries with several expansions are ambiguous
// and fan out in the order listed.
var defaultAbbreviations = []struct {
	Shorthand  string
	Expansions []string
}{
	// Hematology
	{"hgb", []string{"hemoglobin"}},
	{"hb", []string{"hemoglobin"}},
	{"hct", []string{"hematocrit"}},
	{"wbc", []string{"white blood cell", "leukocytes"}},
	{"rbc", []string{"red blood cell", "erythrocytes"}},
	{"plt", []string{"platelet", "platelets"}},
	{"plts", []string{"platelets"}},
	{"mcv", []string{"mean corpuscular volume"}},
	{"mch", []string{"mean corpuscular hemoglobin"}},
	{"mchc", []string{"mean corpuscular hemoglobin concentration"}},
	{"rdw", []string{"red cell distribution width"}},
	{"mpv", []string{"mean platelet volume"}},
	{"neut", []string{"neutrophils"}},
	{"lymph", []string{"lymphocytes"}},
	{"mono", []string{"monocytes"}},
	{"eos", []string{"eosinophils"}},
	{"baso", []string{"basophils"}},
	{"seg", []string{"segmented"}},
	{"gran", []string{"granulocytes"}},
	{"esr", []string{"erythrocyte sedimentation rate"}},

	// Chemistry
	{"glu", []string{"glucose"}},
	{"gluc", []string{"glucose"}},
	{"fst", []string{"fasting"}},
	{"fbs", []string{"fasting glucose"}},
	{"na", []string{"sodium"}},
	{"k", []string{"potassium"}},
	{"cl", []string{"chloride"}},
	{"co2", []string{"carbon dioxide", "bicarbonate"}},
	{"hco3", []string{"bicarbonate"}},
	{"ca", []string{"calcium"}},
	{"mg", []string{"magnesium"}},
	{"phos", []string{"phosphorus", "phosphatase"}},
	{"bun", []string{"urea nitrogen", "blood urea nitrogen"}},
	{"cr", []string{"creatinine"}},
	{"creat", []string{"creatinine"}},
	{"egfr", []string{"glomerular filtration rate"}},
	{"gfr", []string{"glomerular filtration rate"}},
	{"alb", []string{"albumin"}},
	{"glob", []string{"globulin"}},
	{"tp", []string{"total protein", "protein"}},
	{"bili", []string{"bilirubin"}},
	{"tbili", []string{"total bilirubin", "bilirubin total"}},
	{"dbili", []string{"direct bilirubin", "bilirubin direct"}},
	{"ast", []string{"aspartate aminotransferase"}},
	{"alt", []string{"alanine aminotransferase"}},
	{"alk phos", []string{"alkaline phosphatase"}},
	{"alp", []string{"alkaline phosphatase"}},
	{"ggt", []string{"gamma glutamyl transferase"}},
	{"ldh", []string{"lactate dehydrogenase"}},
	{"ck", []string{"creatine kinase"}},
	{"cpk", []string{"creatine kinase"}},
	{"chol", []string{"cholesterol"}},
	{"trig", []string{"triglycerides", "triglyceride"}},
	{"hdl", []string{"cholesterol in hdl", "high density lipoprotein cholesterol"}},
	{"ldl", []string{"cholesterol in ldl", "low density lipoprotein cholesterol"}},
	{"vldl", []string{"very low density lipoprotein cholesterol"}},
	{"hba1c", []string{"hemoglobin a1c"}},
	{"hgba1c", []string{"hemoglobin a1c"}},
	{"a1c", []string{"hemoglobin a1c"}},
	{"tibc", []string{"total iron binding capacity", "iron binding capacity"}},
	{"tsat", []string{"iron saturation"}},
	{"ferr", []string{"ferritin"}},

	// Endocrine
	{"tsh", []string{"thyrotropin", "thyroid stimulating hormone"}},
	{"t3", []string{"triiodothyronine"}},
	{"t4", []string{"thyroxine"}},
	{"ft3", []string{"free triiodothyronine", "triiodothyronine free"}},
	{"ft4", []string{"free thyroxine", "thyroxine free"}},
	{"psa", []string{"prostate specific antigen", "prostate specific ag"}},
	{"bnp", []string{"natriuretic peptide b", "b-type natriuretic peptide"}},
	{"b12", []string{"vitamin b12", "cobalamin"}},
	{"vitd", []string{"vitamin d", "25-hydroxyvitamin d"}},
	{"25ohd", []string{"25-hydroxyvitamin d"}},
	{"folate", []string{"folic acid"}},

	// Coagulation and inflammation
	{"pt", []string{"prothrombin time"}},
	{"inr", []string{"international normalized ratio", "inr in platelet poor plasma"}},
	{"ptt", []string{"partial thromboplastin time", "aptt"}},
	{"aptt", []string{"activated partial thromboplastin time"}},
	{"crp", []string{"c reactive protein", "c-reactive protein"}},
	{"rf", []string{"rheumatoid factor"}},
	{"ana", []string{"nuclear ab", "antinuclear antibody"}},

	// Urine and specimen words
	{"ua", []string{"urinalysis", "urine"}},
	{"ur", []string{"urine"}},
	{"ser", []string{"serum"}},
	{"plas", []string{"plasma"}},
	{"sg", []string{"specific gravity"}},
	{"le", []string{"leukocyte esterase"}},

	// Qualifiers
	{"abs", []string{"absolute"}},
	{"calc", []string{"calculated"}},
	{"auto", []string{"automated"}},
	{"scr", []string{"screen"}},
	{"scrn", []string{"screen"}},
	{"lvl", []string{"level"}},
	{"tot", []string{"total"}},
	{"dir", []string{"direct"}},
	{"ind", []string{"indirect"}},

	// Serology and toxicology
	{"hiv", []string{"human immunodeficiency virus"}},
	{"hep", []string{"hepatitis"}},
	{"hbsag", []string{"hepatitis b surface antigen", "hepatitis b virus surface ag"}},
	{"thc", []string{"cannabinoids"}},
	{"pcp", []string{"phencyclidine"}},
	{"amph", []string{"amphetamines"}},
	{"barb", []string{"barbiturates"}},
	{"benzo", []string{"benzodiazepines"}},
	{"etoh", []string{"ethanol"}},
}

// defaultStripSuffixes are trailing words that rarely change which test is meant
var defaultStripSuffixes = []string{"level", "count", "test", "panel", "result"}

// DefaultDictionary returns the built-in abbreviation dictionary
func DefaultDictionary() *Dictionary {
	d := NewDictionary()
	for _, e := range defaultAbbreviations {
		d.Add(e.Shorthand, e.Expansions...)
	}
	d.AddStripSuffix(defaultStripSuffixes...)
	return d
}
