// Package scaffold produces the files of a generated backend project.
//
// Key responsibilities:
//   - Load generator defaults from an optional uploadkit.jsonc file
//     (JSONC, parsed with github.com/tidwall/jsonc)
//   - Render the project templates embedded in the binary
//   - Write the rendered files and verify each write
//   - Generate a docker-compose.yml for the optional Postgres service
//     (serialized with gopkg.in/yaml.v3)
package scaffold
