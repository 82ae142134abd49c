package descriptions

// Tool descriptions with practical examples and use cases

const (
	// Session Tools
	PDFGraphicsOpenDescription = `Open a PDF document for graphics editing and get a session id.

**When to use:** Before listing, inserting, removing or reordering anything on a page.

**Why it's useful:** The document stays open between calls, so page content is parsed once and every edit is kept in memory until you commit and save.

**Examples:**
• Start editing: "Open brochure.pdf so I can move the logo above the photo"
• Inspect resources: the result lists the page 1 font and XObject resource names you can reuse

**Common workflows:**
1. Edit: open → list → insert/remove/move → commit → save → verify_text
2. Inspect: open → list → get → close

**Best practices:** Close sessions you no longer need; the server keeps a limited number open and drops the least recently used one.`

	PDFGraphicsCloseDescription = `Close an editing session.

**When to use:** When you are done with a document.

**Why it's useful:** Frees the session slot. A session with uncommitted changes is kept open unless force is true, so edits are not lost by accident.

**Best practices:** Commit and save first; use force only to deliberately discard edits.`

	// Sequence Tools
	PDFGraphicsListDescription = `List the graphics objects of a page in paint order.

**When to use:** To see what a page draws: text runs, paths, images, shadings, form XObjects, q/Q and marked-content groups, annotations and left-over page operators.

**Why it's useful:** Every entry carries a position token ("sequence:generation:index") used by get, remove, move and insert. A token only works in the scope that listed it. Earlier entries are painted first, later entries paint over them.

**Examples:**
• "List only the images on page 2" → kinds: "image"
• "Show the children of the first group" → container: [0]
• "List the content of form Fm1" → form: "Fm1"

**Best practices:** Position tokens expire as soon as the sequence changes; list again after every edit.`

	PDFGraphicsGetDescription = `Describe one graphics object and show its regenerated content stream operators.

**When to use:** To inspect a single element by position token or by index.

**Best practices:** Use index for quick inspection; use the position token when you are about to edit, since it is rejected if the page changed in between.`

	PDFGraphicsInsertDescription = `Insert a new graphics object after a position, or at the front (painted first, underneath everything) when no position is given.

**When to use:** To add a filled rectangle, a line of text, or another placement of an existing image or form XObject.

**Examples:**
• Highlight box: type "rect", rect [x, y, width, height], color [r, g, b] in 0..1
• Caption: type "text", text, x, y, font_size, font (page font resource or standard font such as "Helvetica")
• Logo copy: type "xobject", name "Im1", matrix [a, b, c, d, e, f]

**Best practices:** New objects are wrapped in q/Q so their colour and transform do not leak. Insert after the last element to paint on top.`

	PDFGraphicsRemoveDescription = `Remove the graphics object at a position.

**When to use:** To delete a text run, path, image, group or annotation from a page.

**Best practices:** Removing a q/Q group removes everything inside it. Removing an annotation drops it from the page's /Annots on commit.`

	PDFGraphicsMoveDescription = `Move a graphics object after another one, or to the front when no target is given.

**When to use:** To change stacking order: move an element later to paint it on top, earlier to send it behind.

**Best practices:** Moving an element onto itself leaves the order unchanged but still invalidates outstanding position tokens.`

	PDFGraphicsCommitDescription = `Write the edited sequence back into the page or form content stream.

**When to use:** After edits and before saving.

**Why it's useful:** Regenerates the content stream from the current order and rewrites /Annots. Merge options: "text" combines adjacent compatible text runs into one BT/ET object, "brackets" drops empty groups and collapses redundant nested q/Q.

**Best practices:** Committing a nested container marks its parent page dirty; commit the page too, or commit with all: true.`

	PDFGraphicsSaveDescription = `Save the session's document to its original path or to output_path.

**When to use:** After committing.

**Best practices:** Save refuses while sequences hold uncommitted changes unless force is true; it never commits for you. The file is written to a temporary file and renamed into place.`

	PDFGraphicsHitTestDescription = `Find the graphics objects under a point or intersecting a rectangle.

**When to use:** To map a location on the page to the objects that paint there, for example "what is drawn at 300, 400?".

**Best practices:** Hits come back in paint order; top is the object painted last, i.e. the visible one.`

	PDFGraphicsVerifyTextDescription = `Re-read a saved PDF with an independent reader and check that a page contains expected text.

**When to use:** After saving, to confirm text edits survived and nothing was lost.

**Best practices:** Text extraction joins glyphs heuristically; whitespace differences are ignored.`

	PDFServerInfoDescription = `Get server information, open sessions and usage guidance.

**When to use:** At the start of a conversation to learn the working directory, limits and available tools.`
)
