/*
access.go - Ownership and authorization rules

PURPOSE:
  Encodes who may do what with a report configuration as a pure function of
  (principal, configuration). Every operation consults CapabilitiesFor;
  there are no bespoke inline checks anywhere else.

RULES:
  Read/Execute:   system report OR owned by the principal
  Update/Delete:  NOT a system report AND owned by the principal

  System reports are visible to everyone and mutable by no one through the
  normal paths. Role-based elevation is a recognized extension point but
  not part of the default contract.
*/
package reporting

// Capabilities is the set of operations a principal may perform on one
// configuration.
type Capabilities struct {
	Read    bool
	Execute bool
	Update  bool
	Delete  bool
}

// CapabilitiesFor computes the capability set. Pure; no I/O.
func CapabilitiesFor(p Principal, cfg ReportConfiguration) Capabilities {
	owner := cfg.CreatedBy != "" && cfg.CreatedBy == p.UserID

	readable := cfg.IsSystem || owner
	mutable := !cfg.IsSystem && owner

	return Capabilities{
		Read:    readable,
		Execute: readable,
		Update:  mutable,
		Delete:  mutable,
	}
}
