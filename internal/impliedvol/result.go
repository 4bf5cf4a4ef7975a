package impliedvol

import (
	"errors"
	"fmt"
)

// Status tags a Result as converged or not.
type Status string

const (
	Converged  Status = "converged"
	NoSolution Status = "no_solution"
)

// Method names the algorithm that produced a converged volatility.
type Method string

const (
	MethodNewton    Method = "newton"
	MethodBisection Method = "bisection"
)

// Reason explains a NoSolution outcome.
type Reason string

const (
	ReasonExpired          Reason = "expired"
	ReasonNonPositivePrice Reason = "non_positive_price"
	ReasonInvalidInput     Reason = "invalid_input"
	ReasonBelowIntrinsic   Reason = "below_intrinsic"
	ReasonOutOfBounds      Reason = "out_of_bounds"
	ReasonNotConverged     Reason = "not_converged"
	ReasonNumericalFault   Reason = "numerical_fault"
)

var (
	// ErrNoSolution matches every NoSolutionError.
	ErrNoSolution = errors.New("no implied volatility solution")

	ErrExpired          = errors.New("option has expired")
	ErrNonPositivePrice = errors.New("option price must be positive")
	ErrInvalidInput     = errors.New("invalid pricing inputs")
	ErrBelowIntrinsic   = errors.New("option price below intrinsic value")
	ErrOutOfBounds      = errors.New("option price outside the admissible volatility range")
	ErrNotConverged     = errors.New("solver did not converge")
	ErrNumericalFault   = errors.New("numerical fault while solving")
)

var reasonErrors = map[Reason]error{
	ReasonExpired:          ErrExpired,
	ReasonNonPositivePrice: ErrNonPositivePrice,
	ReasonInvalidInput:     ErrInvalidInput,
	ReasonBelowIntrinsic:   ErrBelowIntrinsic,
	ReasonOutOfBounds:      ErrOutOfBounds,
	ReasonNotConverged:     ErrNotConverged,
	ReasonNumericalFault:   ErrNumericalFault,
}

// Result is the outcome of an implied volatility query. Volatility, Method
// and Iterations are meaningful only when Status is Converged; Reason only
// when Status is NoSolution.
type Result struct {
	Status     Status  `json:"status"`
	Volatility float64 `json:"volatility,omitempty"`
	Iterations int     `json:"iterations"`
	Method     Method  `json:"method,omitempty"`
	Reason     Reason  `json:"reason,omitempty"`
}

func converged(sigma float64, iterations int, m Method) Result {
	return Result{Status: Converged, Volatility: sigma, Iterations: iterations, Method: m}
}

func noSolution(reason Reason, iterations int) Result {
	return Result{Status: NoSolution, Reason: reason, Iterations: iterations}
}

// Converged reports whether a volatility was found.
func (r Result) Converged() bool {
	return r.Status == Converged
}

// Err returns nil for a converged result and a *NoSolutionError otherwise.
func (r Result) Err() error {
	if r.Converged() {
		return nil
	}
	return &NoSolutionError{Reason: r.Reason}
}

// NoSolutionError is returned by Result.Err. It matches ErrNoSolution and
// the sentinel for its Reason under errors.Is.
type NoSolutionError struct {
	Reason Reason
}

func (e *NoSolutionError) Error() string {
	if err, ok := reasonErrors[e.Reason]; ok {
		return fmt.Sprintf("%v: %v", ErrNoSolution, err)
	}
	return ErrNoSolution.Error()
}

func (e *NoSolutionError) Unwrap() []error {
	if err, ok := reasonErrors[e.Reason]; ok {
		return []error{ErrNoSolution, err}
	}
	return []error{ErrNoSolution}
}
