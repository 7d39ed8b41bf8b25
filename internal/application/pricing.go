package application

// ResourceLookup resolves a resource id to its catalog entry.
type ResourceLookup func(resourceID string) (Resource, error)

// RecomputeTotal derives a booking's total price from its assignment lines:
// the sum of unit price times quantity over every line. It is a pure function
// and the only way a total is ever produced; caller supplied totals are never
// trusted.
func RecomputeTotal(assignments []Assignment, lookup ResourceLookup) (int64, error) {
	var total int64
	for _, assignment := range assignments {
		resource, err := lookup(assignment.ResourceID)
		if err != nil {
			return 0, err
		}
		quantity := assignment.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		total += resource.UnitPriceCents * int64(quantity)
	}
	return total, nil
}
