// Package scenarios resolves model scenarios across the public and private
// spaces.
//
// A public scenario has no owner and is readable by anyone holding a valid
// token. A private scenario belongs to exactly one identity, stored as the
// string form of its id. Lookups by id check the public space first and fall
// back to the requester's private space. Listings strip the bulk payload keys
// (modelInputs, modelOutputs, modelSets) so list views stay small.
//
// Owner ids always come from verified claims. A private scenario owned by
// someone else behaves exactly like a missing one.
package scenarios
