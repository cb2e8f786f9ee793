// Package meal analyses a meal photo with three stages run in strict order:
// identification of food items and portions, nutrition research per item and
// aggregation into a MealReport.
//
// Every stage hands a fresh copy of the item list to the next one. Model
// output is untrusted and is parsed and validated at each stage boundary.
// A malformed identification is fatal, a failed lookup for one item only
// leaves that item without nutrition data and lowers the report confidence.
package meal
