package component

// Widget names understood by clients rendering a Form.
const (
	WidgetFloat     = "float"
	WidgetInteger   = "integer"
	WidgetNumeric   = "numeric"
	WidgetBoolean   = "boolean"
	WidgetSelection = "selection"
	WidgetText      = "text"
	WidgetChar      = "char"
	WidgetDate      = "date"
	WidgetDateTime  = "datetime"
	WidgetCodedList = "coded_list"
	WidgetCoded     = "coded"
	WidgetUser      = "health_professional"
)

type Field struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Widget    string   `json:"widget"`
	Required  bool     `json:"required,omitempty"`
	ReadOnly  bool     `json:"readonly,omitempty"`
	Invisible bool     `json:"invisible,omitempty"`
	Options   []Option `json:"options,omitempty"`
	Help      string   `json:"help,omitempty"`
}

// Form describes how a component kind is edited.
type Form struct {
	Name    string   `json:"name"`
	Kind    Kind     `json:"kind"`
	Title   string   `json:"title"`
	Fields  []Field  `json:"fields"`
	Buttons []string `json:"buttons"`
}

var signatureFields = []Field{
	{Name: "signed_by", Label: "Signed by", Widget: WidgetUser, ReadOnly: true},
	{Name: "sign_time", Label: "Signed on", Widget: WidgetDateTime, ReadOnly: true},
}

var headerFields = []Field{
	{Name: "start_time", Label: "Start", Widget: WidgetDateTime, Required: true},
	{Name: "end_time", Label: "End", Widget: WidgetDateTime},
	{Name: "performed_by", Label: "Clinician", Widget: WidgetUser},
	{Name: "warning", Label: "Warning", Widget: WidgetBoolean, Help: "Check this box to alert the supervisor about this session. It will be shown in red in the encounter"},
}

func options(values []string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}

func uriField(name, label string) Field {
	return Field{Name: name, Label: label, Widget: WidgetSelection, Options: options(UrineLevels)}
}

var dehydrationOptions = []Option{
	{Value: "none", Label: "No"}, {Value: "mild", Label: "Mild"},
	{Value: "moderate", Label: "Moderate"}, {Value: "severe", Label: "Severe"},
}

var kindFields = map[Kind][]Field{
	KindAnthropometry: {
		{Name: "weight", Label: "Weight (kg)", Widget: WidgetFloat},
		{Name: "height", Label: "Height (cm)", Widget: WidgetFloat},
		{Name: "bmi", Label: "Body Mass Index", Widget: WidgetFloat, ReadOnly: true},
		{Name: "head_circumference", Label: "Head Circumference", Widget: WidgetFloat},
		{Name: "abdominal_circ", Label: "Waist", Widget: WidgetFloat},
		{Name: "hip", Label: "Hip", Widget: WidgetFloat},
		{Name: "whr", Label: "WHR", Widget: WidgetFloat, ReadOnly: true, Help: "Waist to hip ratio"},
	},
	KindAmbulatory: {
		{Name: "systolic", Label: "Systolic Pressure", Widget: WidgetInteger},
		{Name: "diastolic", Label: "Diastolic Pressure", Widget: WidgetInteger},
		{Name: "bpm", Label: "Heart Rate", Widget: WidgetInteger, Help: "Heart rate expressed in beats per minute"},
		{Name: "respiratory_rate", Label: "Respiratory Rate", Widget: WidgetInteger, Help: "Respiratory rate expressed in breaths per minute"},
		{Name: "osat", Label: "Oxygen Saturation", Widget: WidgetInteger},
		{Name: "temperature", Label: "Temperature (°C)", Widget: WidgetFloat},
		{Name: "pregnant", Label: "Pregnant", Widget: WidgetBoolean},
		{Name: "lmp", Label: "Last Menstrual Period", Widget: WidgetDate},
		{Name: "glucose", Label: "Glucose (mmol/l)", Widget: WidgetFloat},
		{Name: "uri_ph", Label: "pH", Widget: WidgetNumeric},
		{Name: "uri_specific_gravity", Label: "Specific Gravity", Widget: WidgetNumeric},
		uriField("uri_protein", "Protein"),
		uriField("uri_blood", "Blood"),
		uriField("uri_glucose", "Glucose"),
		{Name: "uri_nitrite", Label: "Nitrite", Widget: WidgetSelection, Options: options(NitriteLevels)},
		uriField("uri_bilirubin", "Bilirubin"),
		uriField("uri_leuko", "Leukocytes"),
		uriField("uri_ketone", "Ketone"),
		uriField("uri_urobili", "Urobilinogen"),
		{Name: "malnutrition", Label: "Malnourished", Widget: WidgetBoolean},
		{Name: "dehydration", Label: "Dehydration", Widget: WidgetSelection, Options: dehydrationOptions},
	},
	KindMentalStatus: {
		{Name: "loc", Label: "Glasgow", Widget: WidgetInteger, ReadOnly: true},
		{Name: "loc_eyes", Label: "Glasgow - Eyes", Widget: WidgetSelection, Options: LocEyes},
		{Name: "loc_verbal", Label: "Glasgow - Verbal", Widget: WidgetSelection, Options: LocVerbal},
		{Name: "loc_motor", Label: "Glasgow - Motor", Widget: WidgetSelection, Options: LocMotor},
		{Name: "tremor", Label: "Tremor", Widget: WidgetBoolean},
		{Name: "violent", Label: "Violent Behaviour", Widget: WidgetBoolean},
		{Name: "mood", Label: "Mood", Widget: WidgetSelection, Options: Moods},
		{Name: "orientation", Label: "Disoriented", Widget: WidgetBoolean},
		{Name: "memory", Label: "Memory Problems", Widget: WidgetBoolean},
		{Name: "knowledge_current_events", Label: "Knowledge of Current Events", Widget: WidgetBoolean},
		{Name: "judgement", Label: "Judgement off", Widget: WidgetBoolean},
		{Name: "abstraction", Label: "Abstract Reasoning Difficult", Widget: WidgetBoolean},
		{Name: "vocabulary", Label: "Vocabulary", Widget: WidgetBoolean},
		{Name: "calculation_ability", Label: "Calculation Inability", Widget: WidgetBoolean},
		{Name: "object_recognition", Label: "Object Recognition", Widget: WidgetBoolean},
		{Name: "praxis", Label: "Praxis", Widget: WidgetBoolean},
	},
	KindClinical: {
		{Name: "signs_symptoms", Label: "Signs and Symptoms", Widget: WidgetCodedList},
		{Name: "diagnosis", Label: "Presumptive Diagnosis", Widget: WidgetCoded},
		{Name: "diagnostic_hypothesis", Label: "Hypotheses / DDx", Widget: WidgetCodedList},
		{Name: "secondary_conditions", Label: "Secondary Conditions", Widget: WidgetCodedList},
		{Name: "directions", Label: "Procedures", Widget: WidgetCodedList, Help: "Procedures / Actions to take"},
		{Name: "treatment_plan", Label: "Treatment Plan", Widget: WidgetText},
	},
	KindProcedures: {
		{Name: "procedures", Label: "Procedures", Widget: WidgetCodedList},
		{Name: "anesthesia", Label: "Anesthesia", Widget: WidgetChar},
		{Name: "outcome", Label: "Outcome", Widget: WidgetText},
	},
}

var kindTitles = map[Kind]string{
	KindAnthropometry: "Anthropometry",
	KindAmbulatory:    "Vital Signs",
	KindMentalStatus:  "Mental Status",
	KindClinical:      "Clinical",
	KindProcedures:    "Procedures",
}

// forms maps view_form names to the kind they edit.
var forms = map[string]Kind{
	"anthropometry_form": KindAnthropometry,
	"ambulatory_form":    KindAmbulatory,
	"mental_status_form": KindMentalStatus,
	"clinical_form":      KindClinical,
	"procedures_form":    KindProcedures,
}

// DefaultForm names the form used when a type registers none.
func DefaultForm(kind Kind) string { return string(kind) + "_form" }

// FormFor builds the descriptor named viewForm for c. Signed components get
// a read-only form with the signature shown.
func FormFor(viewForm string, c Component) (*Form, error) {
	kind, ok := forms[viewForm]
	if !ok || kind != c.Kind() {
		return nil, ErrUnknownForm
	}
	signed := c.Header().Signed()

	var fields []Field
	fields = append(fields, headerFields...)
	fields = append(fields, kindFields[kind]...)
	fields = append(fields, Field{Name: "notes", Label: "Notes", Widget: WidgetText})
	for _, f := range signatureFields {
		f.Invisible = !signed
		fields = append(fields, f)
	}
	if signed {
		for i := range fields {
			fields[i].ReadOnly = true
		}
	}

	f := &Form{Name: viewForm, Kind: kind, Title: kindTitles[kind], Fields: fields}
	if signed {
		f.Buttons = []string{"close"}
	} else {
		f.Buttons = []string{"cancel", "save", "sign"}
	}
	return f, nil
}
