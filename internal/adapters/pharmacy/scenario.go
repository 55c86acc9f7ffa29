package pharmacy

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
)

//go:embed default_scenario.yaml
var defaultScenarioYAML []byte

// Scenario describes a pharmacy to simulate
type Scenario struct {
	Name             string         `yaml:"name" validate:"required"`
	Reputation       int            `yaml:"reputation" validate:"gte=0,lte=100"`
	CustomerPatience time.Duration  `yaml:"customer_patience" validate:"gte=0"`
	Staff            []staff.Record `yaml:"staff" validate:"required,min=1"`
	Products         []ProductSpec  `yaml:"products" validate:"required,min=1,dive"`
	Materials        []MaterialSpec `yaml:"materials" validate:"dive"`
	Arrivals         ArrivalSpec    `yaml:"arrivals"`
}

// ProductSpec is a catalog entry
type ProductSpec struct {
	ID        string         `yaml:"id" validate:"required"`
	Name      string         `yaml:"name" validate:"required"`
	Price     float64        `yaml:"price" validate:"gte=0"`
	Stock     int            `yaml:"stock" validate:"gte=0"`
	Target    int            `yaml:"target" validate:"gte=0"`
	BatchSize int            `yaml:"batch_size" validate:"gte=1"`
	Recipe    map[string]int `yaml:"recipe"`
}

// MaterialSpec is a raw material with its reorder policy
type MaterialSpec struct {
	Name         string  `yaml:"name" validate:"required"`
	Quantity     int     `yaml:"quantity" validate:"gte=0"`
	ReorderLevel int     `yaml:"reorder_level" validate:"gte=0"`
	ReorderQty   int     `yaml:"reorder_qty" validate:"gte=0"`
	UnitCost     float64 `yaml:"unit_cost" validate:"gte=0"`
}

// ArrivalSpec paces the demo customer stream
type ArrivalSpec struct {
	MinGap           time.Duration `yaml:"min_gap" validate:"gte=0"`
	Chance           float64       `yaml:"chance" validate:"gte=0,lte=1"`
	MaxOpenCustomers int           `yaml:"max_open_customers" validate:"gte=0"`
	Seed             uint64        `yaml:"seed"`
}

// ProducerConfig maps the arrival section onto the producer settings
func (a ArrivalSpec) ProducerConfig() simulation.ProducerConfig {
	return simulation.ProducerConfig{
		MinArrivalGap:    a.MinGap,
		ArrivalChance:    a.Chance,
		MaxOpenCustomers: a.MaxOpenCustomers,
		Seed:             a.Seed,
	}
}

// DefaultScenario returns the built-in corner pharmacy
func DefaultScenario() (*Scenario, error) {
	return ParseScenario(defaultScenarioYAML)
}

// LoadScenario reads and validates a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints and cross references
func (s *Scenario) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("scenario validation failed: %w", err)
	}
	seen := make(map[string]bool, len(s.Staff))
	for _, w := range s.Staff {
		if w.ID == "" {
			return fmt.Errorf("scenario validation failed: staff member %q has no id", w.Name)
		}
		if seen[w.ID] {
			return fmt.Errorf("scenario validation failed: duplicate staff id %s", w.ID)
		}
		seen[w.ID] = true
	}
	materials := make(map[string]bool, len(s.Materials))
	for _, m := range s.Materials {
		materials[m.Name] = true
	}
	for _, p := range s.Products {
		for name := range p.Recipe {
			if !materials[name] {
				return fmt.Errorf("scenario validation failed: product %s uses unknown material %s", p.ID, name)
			}
		}
	}
	return nil
}

// UnknownRoles lists staff whose role text does not map to a canonical role.
// These workers load but are skipped by assignment until their role is fixed.
func (s *Scenario) UnknownRoles() []string {
	var unknown []string
	for _, w := range s.Staff {
		if _, err := staff.ParseRole(w.Role); err != nil {
			unknown = append(unknown, w.ID)
		}
	}
	return unknown
}

// World holds the in-memory collaborators built from a scenario
type World struct {
	Roster    *Roster
	Customers *CustomerBook
	Inventory *Inventory
	Ledger    *Ledger
	Hooks     *Hooks
}

// Build creates the in-memory pharmacy described by the scenario
func (s *Scenario) Build(clock shared.Clock, logger common.Logger) *World {
	ledger := NewLedger(s.Reputation)

	products := make([]Product, 0, len(s.Products))
	for _, p := range s.Products {
		products = append(products, Product{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Stock:     p.Stock,
			Target:    p.Target,
			BatchSize: p.BatchSize,
			Recipe:    p.Recipe,
		})
	}
	materials := make([]Material, 0, len(s.Materials))
	for _, m := range s.Materials {
		materials = append(materials, Material(m))
	}
	inventory := NewInventory(products, materials, ledger)

	workers := make([]*staff.Worker, 0, len(s.Staff))
	for _, r := range s.Staff {
		workers = append(workers, staff.FromRecord(r))
	}
	roster := NewRoster(workers...)
	customers := NewCustomerBook(inventory, s.CustomerPatience, clock)
	customers.ledger = ledger

	return &World{
		Roster:    roster,
		Customers: customers,
		Inventory: inventory,
		Ledger:    ledger,
		Hooks:     NewHooks(roster, customers, inventory, ledger, logger),
	}
}
