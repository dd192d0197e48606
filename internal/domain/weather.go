package domain

// Form field names, shared by JSON payloads, validation errors and metrics.
const (
	FieldTemperature         = "temperature"
	FieldHumidity            = "humidity"
	FieldWindSpeed           = "wind_speed"
	FieldPrecipitation       = "precipitation"
	FieldCloudCover          = "cloud_cover"
	FieldAtmosphericPressure = "atmospheric_pressure"
	FieldUVIndex             = "uv_index"
	FieldSeason              = "season"
	FieldVisibility          = "visibility"
	FieldLocation            = "location"
)

// NumFeatures is the width of the model input row.
const NumFeatures = 10

// FeatureVector is one model input row in FeatureNames order.
type FeatureVector [NumFeatures]float64

// FeatureNames are the dataset column names in the order the model expects
// them. Model artifacts declare the same list and are rejected otherwise.
var FeatureNames = [NumFeatures]string{
	"Temperature",
	"Humidity",
	"Wind Speed",
	"Precipitation (%)",
	"Cloud Cover",
	"Atmospheric Pressure",
	"UV Index",
	"Season",
	"Visibility (km)",
	"Location",
}

// Observation is one historical row of the weather dataset. Categorical
// columns keep their raw dataset spelling.
type Observation struct {
	Temperature         float64
	Humidity            float64
	WindSpeed           float64
	Precipitation       float64
	CloudCover          string
	AtmosphericPressure float64
	UVIndex             float64
	Season              string
	Visibility          float64
	Location            string
	WeatherType         string
}

// InputState is the working set of form values for one session.
type InputState struct {
	Temperature         float64 `json:"temperature" yaml:"temperature"`
	Humidity            float64 `json:"humidity" yaml:"humidity"`
	WindSpeed           float64 `json:"wind_speed" yaml:"wind_speed"`
	Precipitation       float64 `json:"precipitation" yaml:"precipitation"`
	CloudCover          string  `json:"cloud_cover" yaml:"cloud_cover"`
	AtmosphericPressure float64 `json:"atmospheric_pressure" yaml:"atmospheric_pressure"`
	UVIndex             float64 `json:"uv_index" yaml:"uv_index"`
	Season              string  `json:"season" yaml:"season"`
	Visibility          float64 `json:"visibility" yaml:"visibility"`
	Location            string  `json:"location" yaml:"location"`
}

// DefaultInputState is the state a new session starts with.
func DefaultInputState() InputState {
	return InputState{
		Temperature:         20,
		Humidity:            50,
		WindSpeed:           10,
		Precipitation:       0,
		CloudCover:          "ясно",
		AtmosphericPressure: 1013,
		UVIndex:             5,
		Season:              "лето",
		Visibility:          10,
		Location:            "внутренние",
	}
}

// TemplateSpec configures one preset: the dataset weather code whose rows are
// averaged, and the categorical values the preset shows.
type TemplateSpec struct {
	Label       string `yaml:"label"`
	CloudCover  string `yaml:"cloud_cover"`
	Season      string `yaml:"season"`
	Location    string `yaml:"location"`
	WeatherCode int    `yaml:"weather_code"`
}

// Template is a preset that overwrites every field of an InputState.
type Template struct {
	Label  string     `json:"label"`
	Values InputState `json:"values"`
}

// Prediction is a model class code with its display label.
type Prediction struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

// Codes groups the categorical encoders of the model input.
type Codes struct {
	CloudCover CategoryCode
	Season     CategoryCode
	Location   CategoryCode
}
