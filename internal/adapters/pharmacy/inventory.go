package pharmacy

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Product is a dispensable item kept on the shelf
type Product struct {
	ID        string
	Name      string
	Price     float64
	Stock     int
	Target    int            // Production tops the shelf up towards this level
	BatchSize int            // Units produced by one compound or production task
	Recipe    map[string]int // Material units consumed per batch
}

// Material is a raw ingredient
type Material struct {
	Name         string
	Quantity     int
	ReorderLevel int
	ReorderQty   int
	UnitCost     float64
}

// Prescription links a customer to the product they need
type Prescription struct {
	ID         string
	CustomerID string
	ProductID  string
	Quantity   int
	Filled     bool
}

// ErrPrescriptionNotFound indicates an unknown prescription id
type ErrPrescriptionNotFound struct {
	PrescriptionID string
}

func (e *ErrPrescriptionNotFound) Error() string {
	return fmt.Sprintf("prescription not found: %s", e.PrescriptionID)
}

// ErrProductNotFound indicates an unknown product id
type ErrProductNotFound struct {
	ProductID string
}

func (e *ErrProductNotFound) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// ErrInsufficientStock indicates a dispense or batch could not be covered
type ErrInsufficientStock struct {
	Item      string
	Needed    int
	Available int
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock of %s: need %d, have %d", e.Item, e.Needed, e.Available)
}

// Inventory tracks shelf stock, raw materials and prescriptions.
// It answers the engine's feasibility questions and the producer's stock questions.
type Inventory struct {
	mu            sync.Mutex
	products      map[string]*Product
	materials     map[string]*Material
	prescriptions map[string]*Prescription
	ledger        *Ledger
	nextRx        int
}

// NewInventory creates an inventory; ledger receives material expenses and may be nil
func NewInventory(products []Product, materials []Material, ledger *Ledger) *Inventory {
	inv := &Inventory{
		products:      make(map[string]*Product, len(products)),
		materials:     make(map[string]*Material, len(materials)),
		prescriptions: make(map[string]*Prescription),
		ledger:        ledger,
	}
	for i := range products {
		p := products[i]
		if p.BatchSize <= 0 {
			p.BatchSize = 1
		}
		inv.products[p.ID] = &p
	}
	for i := range materials {
		m := materials[i]
		inv.materials[m.Name] = &m
	}
	return inv
}

// Prescribe writes a prescription for customerID, rotating through the catalog
func (inv *Inventory) Prescribe(ctx context.Context, customerID string) (string, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	ids := inv.productIDs()
	if len(ids) == 0 {
		return "", fmt.Errorf("catalog is empty")
	}
	inv.nextRx++
	rx := &Prescription{
		ID:         fmt.Sprintf("rx-%04d", inv.nextRx),
		CustomerID: customerID,
		ProductID:  ids[(inv.nextRx-1)%len(ids)],
		Quantity:   1 + (inv.nextRx-1)%3,
	}
	inv.prescriptions[rx.ID] = rx
	return rx.ID, nil
}

// AddPrescription registers a prescription directly
func (inv *Inventory) AddPrescription(rx Prescription) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.prescriptions[rx.ID] = &rx
}

// CanFillPrescription reports whether shelf stock covers the prescription
func (inv *Inventory) CanFillPrescription(ctx context.Context, prescriptionID string) (bool, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	rx, p, err := inv.lookup(prescriptionID)
	if err != nil {
		return false, err
	}
	return p.Stock >= rx.Quantity, nil
}

// CanCompound reports whether raw materials cover one batch of productID
func (inv *Inventory) CanCompound(ctx context.Context, productID string) (bool, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.products[productID]
	if !ok {
		return false, &ErrProductNotFound{ProductID: productID}
	}
	return inv.shortfall(p) == nil, nil
}

// CompoundingNeeded reports the product to compound when the shelf cannot cover prescriptionID
func (inv *Inventory) CompoundingNeeded(ctx context.Context, prescriptionID string) (string, bool, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	rx, p, err := inv.lookup(prescriptionID)
	if err != nil {
		return "", false, err
	}
	return p.ID, p.Stock < rx.Quantity, nil
}

// ProductionNeeded lists products below their target level
func (inv *Inventory) ProductionNeeded(ctx context.Context) ([]string, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	var result []string
	for _, id := range inv.productIDs() {
		if p := inv.products[id]; p.Stock < p.Target {
			result = append(result, id)
		}
	}
	return result, nil
}

// AutoOrder restocks every material below its reorder level
func (inv *Inventory) AutoOrder(ctx context.Context) (int, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	ordered := 0
	for _, m := range inv.materials {
		if m.Quantity >= m.ReorderLevel || m.ReorderQty <= 0 {
			continue
		}
		m.Quantity += m.ReorderQty
		if inv.ledger != nil {
			inv.ledger.RecordExpense(float64(m.ReorderQty) * m.UnitCost)
		}
		ordered++
	}
	return ordered, nil
}

// Produce consumes one batch of materials and shelves BatchSize units
func (inv *Inventory) Produce(productID string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.products[productID]
	if !ok {
		return &ErrProductNotFound{ProductID: productID}
	}
	if err := inv.shortfall(p); err != nil {
		return err
	}
	for name, qty := range p.Recipe {
		inv.materials[name].Quantity -= qty
	}
	p.Stock += p.BatchSize
	return nil
}

// Dispense removes the prescription quantity from the shelf and returns its price
func (inv *Inventory) Dispense(prescriptionID string) (float64, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	rx, p, err := inv.lookup(prescriptionID)
	if err != nil {
		return 0, err
	}
	if rx.Filled {
		return 0, nil
	}
	if p.Stock < rx.Quantity {
		return 0, &ErrInsufficientStock{Item: p.ID, Needed: rx.Quantity, Available: p.Stock}
	}
	p.Stock -= rx.Quantity
	rx.Filled = true
	return p.Price * float64(rx.Quantity), nil
}

// PrescriptionValue returns the sale value of a prescription
func (inv *Inventory) PrescriptionValue(prescriptionID string) (float64, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	rx, p, err := inv.lookup(prescriptionID)
	if err != nil {
		return 0, err
	}
	return p.Price * float64(rx.Quantity), nil
}

// Stock returns the shelf level of productID
func (inv *Inventory) Stock(productID string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if p, ok := inv.products[productID]; ok {
		return p.Stock
	}
	return 0
}

// MaterialLevel returns the quantity of a raw material
func (inv *Inventory) MaterialLevel(name string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if m, ok := inv.materials[name]; ok {
		return m.Quantity
	}
	return 0
}

// DailySummary reports stock levels and the ledger for the closing log
func (inv *Inventory) DailySummary(ctx context.Context) map[string]interface{} {
	inv.mu.Lock()
	stock := make(map[string]int, len(inv.products))
	for id, p := range inv.products {
		stock[id] = p.Stock
	}
	inv.mu.Unlock()

	summary := map[string]interface{}{"stock": stock}
	if inv.ledger != nil {
		for k, v := range inv.ledger.Summary() {
			summary[k] = v
		}
	}
	return summary
}

func (inv *Inventory) lookup(prescriptionID string) (*Prescription, *Product, error) {
	rx, ok := inv.prescriptions[prescriptionID]
	if !ok {
		return nil, nil, &ErrPrescriptionNotFound{PrescriptionID: prescriptionID}
	}
	p, ok := inv.products[rx.ProductID]
	if !ok {
		return nil, nil, &ErrProductNotFound{ProductID: rx.ProductID}
	}
	return rx, p, nil
}

func (inv *Inventory) shortfall(p *Product) error {
	for name, qty := range p.Recipe {
		m, ok := inv.materials[name]
		available := 0
		if ok {
			available = m.Quantity
		}
		if available < qty {
			return &ErrInsufficientStock{Item: name, Needed: qty, Available: available}
		}
	}
	return nil
}

func (inv *Inventory) productIDs() []string {
	ids := make([]string, 0, len(inv.products))
	for id := range inv.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
