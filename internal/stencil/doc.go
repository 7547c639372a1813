// Package stencil implements the five-point Jacobi relaxation and the
// max-abs-difference reduction used for the convergence test.
//
// Every kernel evaluates
//
//	dst[i][j] = 0.25 * (src[i-1][j] + src[i+1][j] + src[i][j-1] + src[i][j+1])
//
// with the operands summed in that order, so serial and parallel kernels
// produce bit-identical fields regardless of how rows are split.
package stencil
