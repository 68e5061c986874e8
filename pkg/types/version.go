package types

// APIVersion participates in the plugin build-version hash. Bump on any
// change to the data model a plugin could observe.
const APIVersion = "0.6.0"
