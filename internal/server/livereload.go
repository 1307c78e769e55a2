package server

import (
	"bytes"
)

// liveReloadScript reconnects after server restarts, swaps stylesheets in
// place after a styles-only rebuild and reloads the page otherwise.
const liveReloadScript = `<script data-folio-livereload>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  function refreshCSS() {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    for (var i = 0; i < links.length; i++) {
      var url = new URL(links[i].href, location.href);
      url.searchParams.set("_folio", Date.now());
      links[i].href = url.toString();
    }
  }
  function connect() {
    var socket = new WebSocket(proto + location.host + "` + WebSocketPath + `");
    socket.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === "css") {
        refreshCSS();
      } else if (msg.type === "reload") {
        location.reload();
      } else if (msg.type === "error") {
        console.error("[folio] " + msg.content);
      }
    };
    socket.onclose = function () {
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
</script>
`

var closingBody = []byte("</body>")

// injectLiveReload inserts the live-reload script before the last </body>
// tag, or appends it when the page has none.
func injectLiveReload(page []byte) []byte {
	i := lastIndexFold(page, closingBody)
	if i < 0 {
		out := make([]byte, 0, len(page)+len(liveReloadScript))
		out = append(out, page...)
		return append(out, liveReloadScript...)
	}

	out := make([]byte, 0, len(page)+len(liveReloadScript))
	out = append(out, page[:i]...)
	out = append(out, liveReloadScript...)
	return append(out, page[i:]...)
}

// lastIndexFold is bytes.LastIndex with ASCII case folding.
func lastIndexFold(s, sep []byte) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if bytes.EqualFold(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}
