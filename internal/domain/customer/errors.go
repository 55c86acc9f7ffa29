package customer

import "fmt"

// ErrCustomerNotFound indicates a customer id has no entry in the directory
type ErrCustomerNotFound struct {
	CustomerID string
}

func (e *ErrCustomerNotFound) Error() string {
	return fmt.Sprintf("customer not found: %s", e.CustomerID)
}
