// Package extract implements the cascading extraction chain that pulls a
// price out of an unreliable storefront page.
//
// A Chain holds an ordered list of strategies and returns the first hit:
//
//  1. current-template: structural selectors believed current
//  2. legacy-template: selectors for the previous page generation, still
//     served intermittently by caches and partial rollouts
//  3. generic-text: a structure-free backstop that pairs a keyword match
//     with a nearby currency amount
//
// Page structure is not a contract the storefronts maintain for us, so the
// chain degrades through decreasing specificity instead of failing when a
// class name disappears.
package extract
