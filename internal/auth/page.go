package auth

import (
	"html/template"
	"io"
)

// callbackPage moves the fragment into a query string. Everything after '#'
// is parsed as if it followed '?', and the interesting parameters are sent to
// the actual callback, whose reply replaces the status line.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="referrer" content="no-referrer">
    <title>saved-transfer login</title>
  </head>
  <body>
    <h2 id="status">Finishing login, you can close this tab in a few seconds</h2>
    <script type="text/javascript">
      (function () {
        var params = new URL(window.location.href.replace('#', '?')).searchParams;
        var forward = new URLSearchParams();
        ['access_token', 'state', 'scope', 'expires_in', 'error'].forEach(function (key) {
          var value = params.get(key);
          if (value !== null) {
            forward.set(key, value);
          }
        });
        history.replaceState(null, '', window.location.pathname);
        window.fetch({{.ActualPath}} + '?' + forward.toString())
          .then(function (resp) { return resp.text(); })
          .then(function (text) { document.getElementById('status').textContent = text; })
          .catch(function () {
            document.getElementById('status').textContent = 'Could not reach saved-transfer. Return to the terminal.';
          });
      })();
    </script>
  </body>
</html>
`))

// renderCallbackPage writes the page for the given actual-callback path.
func renderCallbackPage(w io.Writer, actualPath string) error {
	return callbackPage.Execute(w, struct{ ActualPath string }{actualPath})
}
