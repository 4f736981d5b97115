// Package voiceprint: ses örneği ile kayıtlı referans arasındaki benzerliği
// hesaplayan strateji tipleri.
//
// Feature extraction bu paketin işi değildir: client, ham sesten çıkarılmış
// sabit boyutlu bir float64 vektörü gönderir. Matcher yalnızca iki vektörü
// [0, 1] aralığında bir skora çevirir; 1.0 birebir eşleşme demektir.
// Gerçek bir model geldiğinde sadece yeni bir Matcher eklenir; session ve
// transport katmanı değişmez.
package voiceprint

import (
	"errors"
	"fmt"
	"math"

	"github.com/akinalp/voxgate/pkg"
)

// MaxDimension, kabul edilen en büyük feature vektörü boyutu.
const MaxDimension = 1024

// Matcher, iki feature vektörü için [0, 1] aralığında benzerlik skoru üretir.
// Çağıran taraf vektörleri önce Validate ile kontrol etmelidir.
type Matcher interface {
	Name() string
	Similarity(reference, sample []float64) float64
}

// EuclideanMatcher, Öklid mesafesini lineer olarak skora çevirir:
//
//	score = 1 - min(d, MaxDistance) / MaxDistance
//
// d >= MaxDistance olan her örnek 0 alır.
type EuclideanMatcher struct {
	MaxDistance float64
}

func (m EuclideanMatcher) Name() string { return "euclidean" }

func (m EuclideanMatcher) Similarity(reference, sample []float64) float64 {
	if m.MaxDistance <= 0 {
		return 0
	}

	var sum float64
	for i := range reference {
		diff := reference[i] - sample[i]
		sum += diff * diff
	}
	d := math.Sqrt(sum)
	if d >= m.MaxDistance {
		return 0
	}
	return 1 - d/m.MaxDistance
}

// CosineMatcher, cosine benzerliğini [-1, 1] → [0, 1] aralığına taşır:
// score = (cos + 1) / 2. Sıfır vektörde skor 0'dır.
type CosineMatcher struct{}

func (CosineMatcher) Name() string { return "cosine" }

func (CosineMatcher) Similarity(reference, sample []float64) float64 {
	// Her vektör kendi en büyük mutlak bileşenine bölünür; büyük ama sonlu
	// değerlerde kareler toplamı +Inf'e taşmaz.
	ra, sa := maxAbs(reference), maxAbs(sample)
	if ra == 0 || sa == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range reference {
		r, s := reference[i]/ra, sample[i]/sa
		dot += r * s
		na += r * r
		nb += s * s
	}

	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(cos) {
		return 0
	}
	cos = math.Max(-1, math.Min(1, cos))
	return (cos + 1) / 2
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// NewMatcher, konfigürasyondaki isme göre Matcher döner.
func NewMatcher(name string, maxDistance float64) (Matcher, error) {
	switch name {
	case "", "euclidean":
		if maxDistance <= 0 {
			return nil, errors.New("euclidean matcher requires a positive max distance")
		}
		return EuclideanMatcher{MaxDistance: maxDistance}, nil
	case "cosine":
		return CosineMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown voice matcher %q", name)
	}
}

// ValidateFeatures, tek başına bir vektörü kontrol eder (enrollment için):
// boş olmamalı, MaxDimension'ı aşmamalı, NaN/Inf içermemeli.
func ValidateFeatures(features []float64) error {
	if len(features) == 0 {
		return fmt.Errorf("%w: empty feature vector", pkg.ErrMalformedSample)
	}
	if len(features) > MaxDimension {
		return fmt.Errorf("%w: dimension %d exceeds %d", pkg.ErrMalformedSample, len(features), MaxDimension)
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", pkg.ErrMalformedSample, i)
		}
	}
	return nil
}

// Validate, örneği referansa karşı kontrol eder. Boyut farkı kesme (truncate)
// ile telafi edilmez, örnek reddedilir.
func Validate(reference, sample []float64) error {
	if err := ValidateFeatures(sample); err != nil {
		return err
	}
	if len(sample) != len(reference) {
		return fmt.Errorf("%w: dimension %d does not match reference dimension %d",
			pkg.ErrMalformedSample, len(sample), len(reference))
	}
	return nil
}
