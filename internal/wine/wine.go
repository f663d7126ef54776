// Package wine carries the compiled-in reference classifier for the UCI wine
// dataset: 13 chemistry measurements in, 3 cultivar scores out.
//
// The network is a two-layer perceptron that scores each class by its
// distance to the class centroid in standardized feature space.
package wine

import "fmt"

// Dimensions of the reference model.
const (
	FeatureCount = 13
	ClassCount   = 3
	HiddenUnits  = 2 * FeatureCount
)

// FeatureNames lists the inputs in model order.
var FeatureNames = [FeatureCount]string{
	"alcohol",
	"malic_acid",
	"ash",
	"alcalinity_of_ash",
	"magnesium",
	"total_phenols",
	"flavanoids",
	"nonflavanoid_phenols",
	"proanthocyanins",
	"color_intensity",
	"hue",
	"od280_od315",
	"proline",
}

// ClassNames lists the outputs in model order.
var ClassNames = [ClassCount]string{"class_0", "class_1", "class_2"}

// Dataset statistics used for standardization.
var (
	featureMean = [FeatureCount]float64{13.00, 2.34, 2.37, 19.49, 99.74, 2.30, 2.03, 0.36, 1.59, 5.06, 0.96, 2.61, 746.9}
	featureStd  = [FeatureCount]float64{0.81, 1.12, 0.27, 3.34, 14.28, 0.63, 1.00, 0.12, 0.57, 2.32, 0.23, 0.71, 314.9}

	classMean = [ClassCount][FeatureCount]float64{
		{13.74, 2.01, 2.46, 17.04, 106.3, 2.84, 2.98, 0.29, 1.90, 5.53, 1.06, 3.16, 1116},
		{12.28, 1.93, 2.24, 20.24, 94.5, 2.26, 2.08, 0.36, 1.63, 3.09, 1.06, 2.79, 520},
		{13.15, 3.33, 2.44, 21.42, 99.3, 1.68, 0.78, 0.45, 1.15, 7.40, 0.68, 1.68, 630},
	}
)

// Sample is one row of the dataset with its label.
type Sample struct {
	Raw   [FeatureCount]float64
	Class int
}

// Samples are dataset rows the reference model classifies correctly.
var Samples = []Sample{
	{Raw: [FeatureCount]float64{14.23, 1.71, 2.43, 15.6, 127, 2.80, 3.06, 0.28, 2.29, 5.64, 1.04, 3.92, 1065}, Class: 0},
	{Raw: [FeatureCount]float64{12.37, 0.94, 1.36, 10.6, 88, 1.98, 0.57, 0.28, 0.42, 1.95, 1.05, 1.82, 520}, Class: 1},
	{Raw: [FeatureCount]float64{13.71, 5.65, 2.45, 20.5, 95, 1.68, 0.61, 0.52, 1.06, 7.7, 0.64, 1.74, 740}, Class: 2},
}

// Normalize standardizes raw measurements to zero mean and unit variance.
func Normalize(raw [FeatureCount]float64) [FeatureCount]float32 {
	var out [FeatureCount]float32
	for i := range raw {
		out[i] = float32((raw[i] - featureMean[i]) / featureStd[i])
	}
	return out
}

// NormalizeSlice is Normalize for callers holding a slice.
func NormalizeSlice(raw []float64) ([FeatureCount]float32, error) {
	if len(raw) != FeatureCount {
		return [FeatureCount]float32{}, fmt.Errorf("expected %d features, got %d", FeatureCount, len(raw))
	}
	return Normalize([FeatureCount]float64(raw)), nil
}

// Centroid returns the standardized mean of class k.
func Centroid(k int) [FeatureCount]float32 {
	return Normalize(classMean[k])
}
