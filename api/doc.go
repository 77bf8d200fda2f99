// Package api provides the HTTP REST API for gridhack sessions.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions              create a session ({"level": "level2"} optional)
//   - GET    /api/sessions              list sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}         session info with game state
//   - DELETE /api/sessions/{id}         delete a session and close its sockets
//
// Game operations:
//   - GET  /api/sessions/{id}/state      current game state
//   - POST /api/sessions/{id}/move       {"direction": "up", "reset": false}
//   - POST /api/sessions/{id}/bulk-move  {"moves": ["up", "left"], "reset": false}
//   - POST /api/sessions/{id}/wait       {"ticks": 3}
//   - POST /api/sessions/{id}/reset      restart the current level
//   - GET  /api/sessions/{id}/history    ?page=1&limit=20&order=desc
//
// Console:
//   - POST /api/sessions/{id}/hack     {"x": 3, "y": 4, "attribute": "passable_for", "value": "all"}
//   - POST /api/sessions/{id}/console  {"command": "inspect @"}
//
// Levels:
//   - GET  /api/levels          list level files
//   - GET  /api/levels/{name}   one level definition
//   - POST /api/levels          validate and save a level definition
//
// Other:
//   - GET /ws?session={id}  WebSocket stream of game state for a session
//   - GET /health
//
// Errors are returned as {"error": "message"}. Missing sessions, levels and
// entities map to 404, a disabled console to 403, malformed input to 400.
//
// Every request carries an X-Request-ID header, generated when the client
// did not send one, and is logged with its status and duration.
package api
