package views

// APIVersion participates in the plugin build-version hash. Bump on any
// change to the view contract.
const APIVersion = "0.6.0"
