package models

import "math"

// Parity is the binary class of a tick's last significant digit.
type Parity int

const (
	Even Parity = 0
	Odd  Parity = 1
)

func (p Parity) String() string {
	if p == Odd {
		return "odd"
	}
	return "even"
}

// Other returns the opposite class.
func (p Parity) Other() Parity {
	return 1 - p
}

// Observation is one price tick reduced to its last digit and parity.
// Seq is strictly increasing within the engine buffer.
type Observation struct {
	Seq    int64   `json:"seq"`
	Epoch  int64   `json:"epoch"`
	Price  float64 `json:"price"`
	Digit  int     `json:"digit"`
	Parity Parity  `json:"parity"`
}

// NewObservation derives the last digit from price at the given pip
// precision. pipDigits is the number of decimal places the venue quotes.
func NewObservation(seq, epoch int64, price float64, pipDigits int) Observation {
	scaled := math.Round(price * math.Pow10(pipDigits))
	digit := int(math.Mod(math.Abs(scaled), 10))
	return Observation{
		Seq:    seq,
		Epoch:  epoch,
		Price:  price,
		Digit:  digit,
		Parity: Parity(digit % 2),
	}
}
