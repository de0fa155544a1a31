// Package importers reconciles an external game library with a user's
// collection.
//
// # Architecture
//
// One import run flows as:
//
//	Fetcher → []ImportCandidate → Orchestrator → dedup.Classify → catalog.Resolver → LibraryItem
//	                                          ↘ imported_games (every outcome)
//
// The Orchestrator takes a dedup snapshot once at the start of a run and
// feeds candidates to a fixed-size worker pool. Each candidate ends in
// exactly one summary bucket: Imported, SkippedOwned, SkippedIgnored or
// Failed. Candidates never started because the run was cancelled are
// reported as Unprocessed.
//
// # Idempotence
//
// Running the same import twice converges to the same library. Writes rely
// on unique constraints, not locks:
//
//   - a LibraryItem that already exists for (user, game) is counted as
//     SkippedOwned instead of failing
//   - the imported_games row for (user, storefront, external id) is upserted
//
// # Adding a New Source
//
//  1. Write a fetcher that strictly parses the source into
//     []entities.ImportCandidate plus a list of rejected entries
//  2. Add an entities.Storefront value
//  3. Construct an Orchestrator with that storefront and call ImportAll
package importers
