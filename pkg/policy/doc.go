// Package policy gates method channel calls with Open Policy Agent (OPA)
// Rego policies.
//
// The engine evaluates a decision for every (channel, method) pair, caches
// decisions in a bounded LRU, and plugs into an endpoint as handler
// middleware, so unknown methods are never evaluated.
// Without policy modules nothing is installed and calls are never denied.
package policy
