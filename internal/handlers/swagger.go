package handlers

// @title Feed Proxy
// @version 1.0
// @description Fetches a third-party URL server-side so browser pages can read feeds across origins

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8001
// @BasePath /

// @tag.name relay
// @tag.description URL relay operations
