// Package core implements the sales sheet import.
//
// The package has no transport or storage dependencies: it drives a
// [domain.Store] and can be used by web handlers, the CLI, or tests.
//
// # Pipeline
//
// An import runs these steps under one slot of the [ImportLimiter]:
//
//  1. [ReadSheet] parses CSV or XLSX into a header and rows
//  2. [DecodeSheet] checks the header and converts every row to a [Record];
//     the first bad cell aborts before any write
//  3. [ResolveDimensions] gets or creates regions, markets, countries,
//     states, cities, segments, customers, categories, subcategories and
//     products, walking each stage's distinct keys once
//  4. [LoadFacts] gets or creates orders and inserts one order detail per
//     record, skipping records whose city, product or customer is missing
//
// Steps 3 and 4 share a single transaction. Any error rolls back every write
// made by the call, so an import either fully commits or leaves no trace.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]; see
// error_messages.go for the code table.
package core
