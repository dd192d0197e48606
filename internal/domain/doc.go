// Package domain models the weather-type form: its ten input fields, the
// categorical encodings the classifier was trained with, preset templates,
// and the adapter between form state and the model.
//
// # Dataset Conventions
//
// Historical observations come from the weather classification dataset with
// columns:
//
//	Temperature, Humidity, Wind Speed, Precipitation (%), Cloud Cover,
//	Atmospheric Pressure, UV Index, Season, Visibility (km), Location,
//	Weather Type
//
// Weather Type uses the English labels Cloudy, Rainy, Snowy and Sunny, which
// encode to 0..3 in that order. The remaining categorical columns are kept in
// their raw spelling; presets do not average them.
//
// # Model Input
//
// The classifier takes one row of ten numbers in [FeatureNames] order.
// Categorical form values are encoded with the form's own label sets:
//
//	cloud_cover: ясно=0 облачно=1 пасмурно=2 малооблачно=3
//	season:      осень=0 весна=1 лето=2 зима=3
//	location:    побережье=0 внутренние=1 горы=2
//
// and the class code maps back to Облачно=0 Дождь=1 Снег=2 Солнце=3.
//
// # Presets
//
// Each preset averages the numeric columns of every observation with one
// weather code and rounds half to even. An empty subset is an
// [EmptyCategoryError]; cloud cover, season and location are configured per
// preset rather than derived.
package domain
