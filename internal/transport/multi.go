// SPDX-License-Identifier: MIT
package transport

import "errors"

// Multi fans every frame out to several transports.
type Multi []Transport

// Publish sends to every transport, even after one fails, and joins the errors.
func (m Multi) Publish(name string, values []float64) error {
	var errs []error
	for _, t := range m {
		if err := t.Publish(name, values); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins the errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
