// Package billing holds the pure recurring-billing arithmetic shared by the
// membership service and its sweeps: period advancement, discounting,
// prorated refunds, the membership status machine and the shift capacity gate.
package billing
