package loss

// CrossEntropy is the mean softmax cross-entropy of the raw scores. It ignores confidences.
type CrossEntropy struct {
	// Name overrides String, so the same objective can be reported as "NLLLoss".
	Name string
}

// NewNLL returns the cross-entropy loss under its negative log-likelihood name.
func NewNLL() *CrossEntropy {
	return &CrossEntropy{Name: "NLLLoss"}
}

func (c *CrossEntropy) Loss(b Batch) (Result, error) {
	if err := validate(b, allColumns, false); err != nil {
		return Result{}, err
	}
	return meanCrossEntropy(b), nil
}

func (c *CrossEntropy) Notify(epoch int) {}

func (c *CrossEntropy) String() string {
	if c.Name != "" {
		return c.Name
	}
	return "CrossEntropyLoss"
}

func meanCrossEntropy(b Batch) Result {
	n := float64(b.Len())
	res := Result{Grad: make([][]float64, b.Len())}
	for i, row := range b.Output {
		ce, grad := crossEntropy(row, b.Gold[i])
		for j := range grad {
			grad[j] /= n
		}
		res.Value += ce / n
		res.Grad[i] = grad
	}
	return res
}
